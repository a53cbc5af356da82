package blocks

import "strings"

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepDone       StepStatus = "done"
)

type ProgressStep struct {
	Label  string
	Status StepStatus
}

// Trail is the append-only history of progress labels. Status is derived
// from position: every step but the last is done, the last is in progress
// until the trail is finished. Trail values are immutable; Append and Finish
// return new trails.
type Trail struct {
	labels   []string
	finished bool
}

func NewTrail(first string) Trail {
	return Trail{labels: []string{first}}
}

func (t Trail) Append(label string) Trail {
	labels := make([]string, len(t.labels), len(t.labels)+1)
	copy(labels, t.labels)
	return Trail{labels: append(labels, label)}
}

func (t Trail) Finish() Trail {
	labels := make([]string, len(t.labels))
	copy(labels, t.labels)
	return Trail{labels: labels, finished: true}
}

func (t Trail) Len() int { return len(t.labels) }

func (t Trail) Finished() bool { return t.finished }

// Latest returns the most recently appended label.
func (t Trail) Latest() string {
	if len(t.labels) == 0 {
		return ""
	}
	return t.labels[len(t.labels)-1]
}

func (t Trail) Steps() []ProgressStep {
	steps := make([]ProgressStep, 0, len(t.labels))
	for i, label := range t.labels {
		status := StepDone
		if i == len(t.labels)-1 && !t.finished {
			status = StepInProgress
		}
		steps = append(steps, ProgressStep{Label: label, Status: status})
	}
	return steps
}

// checklist renders steps one per line.
func checklist(steps []ProgressStep) string {
	if len(steps) == 0 {
		return "Starting…"
	}
	lines := make([]string, 0, len(steps))
	for _, s := range steps {
		switch s.Status {
		case StepDone:
			lines = append(lines, ":white_check_mark: "+s.Label)
		case StepInProgress:
			lines = append(lines, ":arrows_counterclockwise: "+s.Label)
		default:
			lines = append(lines, ":white_circle: "+s.Label)
		}
	}
	return strings.Join(lines, "\n")
}

// ProgressFor renders a trail as a checklist under an "Analyzing" or "Done"
// header. The notification text is the newest step.
func ProgressFor(t Trail) Message {
	header := ":hourglass_flowing_sand: *Analyzing…*"
	if t.Finished() {
		header = ":white_check_mark: *Done*"
	}
	text := t.Latest()
	if text == "" {
		text = "Done."
	}
	return Message{Text: text, Blocks: []Block{Section(header), Context(checklist(t.Steps()))}}
}
