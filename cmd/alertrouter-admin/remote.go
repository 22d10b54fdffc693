package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/target/mmk-alert-router/internal/domain/model"
)

const defaultRequestTimeout = 60 * time.Second

var errDispatchUnsuccessful = errors.New("dispatch did not fully succeed")

type remoteOptions struct {
	Server  string
	Filter  string
	Timeout time.Duration
	JSON    bool
}

func (o *remoteOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Server, "server", envOr("ALERT_ROUTER_URL", defaultServerURL), "alert router base URL")
	cmd.Flags().StringVar(&o.Filter, "filter", "", "plugin filter expression (empty selects all)")
	cmd.Flags().DurationVar(&o.Timeout, "timeout", defaultRequestTimeout, "request timeout")
	cmd.Flags().BoolVar(&o.JSON, "json", false, "print the raw aggregated result")
}

func (o *remoteOptions) endpoint(path string) (string, error) {
	base, err := url.Parse(strings.TrimRight(o.Server, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid --server %q", o.Server)
	}
	u := base.JoinPath(path)
	if o.Filter != "" {
		u.RawQuery = url.Values{"filter": []string{o.Filter}}.Encode()
	}
	return u.String(), nil
}

func newHealthCommand() *cobra.Command {
	var opts remoteOptions
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Run a health check on the selected plugins of a running router",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRemote(cmd, &opts, http.MethodGet, "/api/v1/health", nil)
		},
	}
	opts.bind(cmd)
	return cmd
}

func newPushCommand() *cobra.Command {
	var (
		opts remoteOptions
		file string
	)
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push an alert group JSON file to the selected plugins of a running router",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := readEventFile(file)
			if err != nil {
				return err
			}
			return runRemote(cmd, &opts, http.MethodPost, "/api/v1/push", body)
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&file, "file", "", "alert group JSON file (- for stdin)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// readEventFile loads and checks the payload locally so malformed input
// never reaches the server.
func readEventFile(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read event file: %w", err)
	}
	if _, err := model.ParseAlertGroup(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, nil
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func runRemote(cmd *cobra.Command, opts *remoteOptions, method, path string, body []byte) error {
	endpoint, err := opts.endpoint(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return printRemoteResult(cmd.OutOrStdout(), resp.StatusCode, raw, opts.JSON)
}

// printRemoteResult renders an aggregated result. Any status other than ok or
// no_targets is reported as an error after printing.
func printRemoteResult(out io.Writer, code int, raw []byte, asJSON bool) error {
	var result model.AggregatedResult
	if err := json.Unmarshal(raw, &result); err != nil || !result.Status.Valid() {
		var apiErr apiError
		if jerr := json.Unmarshal(raw, &apiErr); jerr == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d %s: %s", code, apiErr.Error, apiErr.Message)
		}
		return fmt.Errorf("server returned %d: %s", code, strings.TrimSpace(string(raw)))
	}

	if asJSON {
		if _, err := out.Write(raw); err != nil {
			return err
		}
		if err := writef(out, "\n"); err != nil {
			return err
		}
	} else if err := printResultTable(out, &result); err != nil {
		return err
	}

	switch result.Status {
	case model.DispatchStatusOK, model.DispatchStatusNoTargets:
		return nil
	default:
		return fmt.Errorf("%w: status %s", errDispatchUnsuccessful, result.Status)
	}
}

func printResultTable(out io.Writer, result *model.AggregatedResult) error {
	filterDesc := result.Filter
	if filterDesc == "" {
		filterDesc = "(all)"
	}
	if err := writef(out, "%s %s filter=%s status=%s\n",
		result.Operation, result.DispatchID, filterDesc, result.Status); err != nil {
		return err
	}
	if len(result.Plugins) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if err := writef(tw, "NAME\tGROUP\tTYPE\tRESULT\tMESSAGE\n"); err != nil {
		return err
	}
	for _, p := range result.Plugins {
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\n",
			p.Identity.Name, p.Identity.Group, p.Identity.Type, p.Result, p.Message); err != nil {
			return err
		}
	}
	return tw.Flush()
}
