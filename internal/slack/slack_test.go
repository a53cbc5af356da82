package slack

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/brianndofor/wif/internal/blocks"
	goslack "github.com/slack-go/slack"
)

type postedMessage struct {
	channel string
	ts      string
	options []goslack.MsgOption
}

type fakeAPI struct {
	Pages      [][]goslack.Message
	RepliesErr error
	Users      map[string]*goslack.User

	Posted    []postedMessage
	Updated   []postedMessage
	Added     []string
	Removed   []string
	UserCalls int
}

func (f *fakeAPI) PostMessageContext(ctx context.Context, channelID string, options ...goslack.MsgOption) (string, string, error) {
	f.Posted = append(f.Posted, postedMessage{channel: channelID, options: options})
	return channelID, "1700000000.000100", nil
}

func (f *fakeAPI) UpdateMessageContext(ctx context.Context, channelID, timestamp string, options ...goslack.MsgOption) (string, string, string, error) {
	f.Updated = append(f.Updated, postedMessage{channel: channelID, ts: timestamp, options: options})
	return channelID, timestamp, "", nil
}

func (f *fakeAPI) GetConversationRepliesContext(ctx context.Context, params *goslack.GetConversationRepliesParameters) ([]goslack.Message, bool, string, error) {
	if f.RepliesErr != nil {
		return nil, false, "", f.RepliesErr
	}
	page := 0
	if params.Cursor != "" {
		page = int(params.Cursor[0] - '0')
	}
	next := ""
	if page+1 < len(f.Pages) {
		next = string(rune('0' + page + 1))
	}
	return f.Pages[page], next != "", next, nil
}

func (f *fakeAPI) GetUserInfoContext(ctx context.Context, user string) (*goslack.User, error) {
	f.UserCalls++
	u, ok := f.Users[user]
	if !ok {
		return nil, errors.New("user_not_found")
	}
	return u, nil
}

func (f *fakeAPI) AddReactionContext(ctx context.Context, name string, item goslack.ItemRef) error {
	f.Added = append(f.Added, name+"@"+item.Timestamp)
	return nil
}

func (f *fakeAPI) RemoveReactionContext(ctx context.Context, name string, item goslack.ItemRef) error {
	f.Removed = append(f.Removed, name+"@"+item.Timestamp)
	return errors.New("no_reaction")
}

func (f *fakeAPI) AuthTestContext(ctx context.Context) (*goslack.AuthTestResponse, error) {
	return &goslack.AuthTestResponse{Team: "sentry", User: "wif"}, nil
}

func msg(user, text, ts string) goslack.Message {
	return goslack.Message{Msg: goslack.Msg{User: user, Text: text, Timestamp: ts}}
}

func TestReadThread(t *testing.T) {
	api := &fakeAPI{
		Pages: [][]goslack.Message{
			{msg("U2", "any update?", "1700000003.0"), msg("U1", "cocoa 8.17.1 crashes on launch", "1700000001.0")},
			{msg("U1", "  ", "1700000004.0"), msg("", "bot note", "1700000002.0"), msg("U3", "same here", "1700000005.0")},
		},
		Users: map[string]*goslack.User{
			"U1": {RealName: "Ada Lovelace"},
			"U2": {Name: "grace", Profile: goslack.UserProfile{RealName: "Grace Hopper"}},
		},
	}
	client := NewWithAPI(api, nil)
	got := client.ReadThread(context.Background(), "C1", "1700000001.0", "fallback")
	want := strings.Join([]string{
		"Ada Lovelace: cocoa 8.17.1 crashes on launch",
		"Unknown: bot note",
		"Grace Hopper: any update?",
		"U3: same here",
	}, "\n\n")
	if got != want {
		t.Fatalf("unexpected thread:\n%s", got)
	}
	if api.UserCalls != 3 {
		t.Fatalf("expected one lookup per user, got %d", api.UserCalls)
	}
}

func TestReadThreadFallsBack(t *testing.T) {
	client := NewWithAPI(&fakeAPI{RepliesErr: errors.New("missing_scope")}, nil)
	if got := client.ReadThread(context.Background(), "C1", "1.0", "original text"); got != "original text" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestThreadPostsIntoThread(t *testing.T) {
	api := &fakeAPI{}
	thread := NewWithAPI(api, nil).Thread("C1", "1700000001.0")
	ts, err := thread.PostMessage(context.Background(), blocks.Message{Text: "Analyzing…", Blocks: []blocks.Block{blocks.Section("hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != "1700000000.000100" {
		t.Fatalf("unexpected ts %q", ts)
	}
	_, values, err := goslack.UnsafeApplyMsgOptions("token", "C1", "https://slack.com/api/", api.Posted[0].options...)
	if err != nil {
		t.Fatalf("apply options: %v", err)
	}
	if values.Get("thread_ts") != "1700000001.0" || values.Get("text") != "Analyzing…" {
		t.Fatalf("unexpected values: %v", values)
	}
	if !strings.Contains(values.Get("blocks"), `"type":"section"`) {
		t.Fatalf("expected section block, got %s", values.Get("blocks"))
	}
	if err := thread.UpdateMessage(context.Background(), ts, blocks.Message{Text: "Done."}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.Updated) != 1 || api.Updated[0].ts != ts {
		t.Fatalf("expected update of posted message, got %+v", api.Updated)
	}
}

func TestToBlocks(t *testing.T) {
	long := strings.Repeat("a", maxTextLen+10)
	out := ToBlocks(blocks.Message{Blocks: []blocks.Block{blocks.Section(long), blocks.Context("ctx"), blocks.Divider()}})
	if len(out) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(out))
	}
	section, ok := out[0].(*goslack.SectionBlock)
	if !ok {
		t.Fatalf("expected section block, got %T", out[0])
	}
	if n := len([]rune(section.Text.Text)); n != maxTextLen {
		t.Fatalf("expected truncation to %d, got %d", maxTextLen, n)
	}
	if out[1].BlockType() != goslack.MBTContext || out[2].BlockType() != goslack.MBTDivider {
		t.Fatalf("unexpected block types: %s %s", out[1].BlockType(), out[2].BlockType())
	}
}

func TestSwapReactionIgnoresFailures(t *testing.T) {
	api := &fakeAPI{}
	client := NewWithAPI(api, nil)
	client.SwapReaction(context.Background(), "C1", "1.0", ReactionQueued, ReactionWorking)
	if len(api.Removed) != 1 || len(api.Added) != 1 || api.Added[0] != "eyes@1.0" {
		t.Fatalf("unexpected reactions: removed=%v added=%v", api.Removed, api.Added)
	}
	status, err := client.AuthStatus(context.Background())
	if err != nil || status != "sentry/wif" {
		t.Fatalf("unexpected auth status %q %v", status, err)
	}
}
