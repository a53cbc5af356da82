package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	goslack "github.com/slack-go/slack"
)

// ErrInvalidSignature is returned when a webhook fails Slack request
// verification.
var ErrInvalidSignature = errors.New("slack signature verification failed")

// verifySignature checks the v0 signature and timestamp headers against the
// raw body.
func verifySignature(header http.Header, secret string, body []byte) error {
	if secret == "" {
		return fmt.Errorf("%w: no signing secret configured", ErrInvalidSignature)
	}
	sv, err := goslack.NewSecretsVerifier(header, secret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

func requestHeader(c *fiber.Ctx) http.Header {
	h := http.Header{}
	for key, values := range c.GetReqHeaders() {
		for _, v := range values {
			h.Add(key, v)
		}
	}
	return h
}
