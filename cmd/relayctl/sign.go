package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/garrettladley/payrelay/internal/config"
	"github.com/garrettladley/payrelay/internal/service/webhook"
	"github.com/garrettladley/payrelay/internal/xhttp"
)

func signCmd(cfg config.Config) *cobra.Command {
	var (
		secret string
		file   string
		at     int64
		send   bool
		target string
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a webhook payload, optionally delivering it to a relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret is required")
			}

			body, err := readPayload(cmd, file)
			if err != nil {
				return err
			}
			warnUnmapped(cmd, body)

			t := time.Now()
			if at > 0 {
				t = time.Unix(at, 0)
			}
			header := webhook.Sign(body, secret, t)

			if !send {
				cmd.Println(header)
				return nil
			}
			return deliver(cmd, target, body, header)
		},
	}
	cmd.Flags().StringVar(&secret, "secret", cfg.WebhookSecret, "webhook signing secret")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "payload file, - for stdin")
	cmd.Flags().Int64Var(&at, "timestamp", 0, "unix timestamp to sign with (default now)")
	cmd.Flags().BoolVar(&send, "deliver", false, "POST the signed payload instead of printing the header")
	cmd.Flags().StringVar(&target, "url", cfg.RelayURL, "webhook URL used with --deliver")
	return cmd
}

func readPayload(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	body, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	return body, nil
}

// warnUnmapped tells the operator when the relay will acknowledge the payload
// without publishing it.
func warnUnmapped(cmd *cobra.Command, body []byte) {
	var evt struct {
		Type string `json:"type"`
	}
	if err := go_json.Unmarshal(body, &evt); err != nil {
		cmd.PrintErrf("warning: payload is not a JSON event: %v\n", err)
		return
	}
	if !webhook.Mapped(evt.Type) {
		cmd.PrintErrf("warning: event type %q is not relayed; the relay will acknowledge it without publishing\n", evt.Type)
	}
}

func deliver(cmd *cobra.Command, target string, body []byte, header string) error {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(webhook.SignatureHeader, header)
	req.Header.Set(xhttp.ContentType, "application/json")

	resp, err := xhttp.NewHTTPClient(xhttp.WithTimeout(30 * time.Second)).Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	cmd.Printf("%s\n%s", resp.Status, respBody)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("relay responded %s", resp.Status)
	}
	return nil
}
