package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reelcut/internal/config"
	"reelcut/internal/jobstore"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) apiAddr() string {
	if c.apiFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.apiFlag)
}

// fetchJob reads one job, preferring the daemon API when --api is set and
// falling back to the shared store otherwise. Reading the store directly
// works even when no daemon is running.
func (c *commandContext) fetchJob(ctx context.Context, jobID string) (*jobstore.Job, error) {
	if addr := c.apiAddr(); addr != "" {
		return fetchJobFromAPI(ctx, addr, jobID)
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := jobstore.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()
	return store.Get(ctx, jobID)
}

func (c *commandContext) listJobs(ctx context.Context) ([]*jobstore.Job, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := jobstore.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()
	return store.List(ctx)
}

func fetchJobFromAPI(ctx context.Context, addr, jobID string) (*jobstore.Job, error) {
	endpoint := url.URL{
		Scheme: "http",
		Host:   addr,
		Path:   "/api/status/" + url.PathEscape(jobID),
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, wrapDialError(err, addr)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, jobstore.ErrNotFound
	default:
		return nil, fmt.Errorf("daemon returned %s for job %s", resp.Status, jobID)
	}

	var job jobstore.Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("decode status response: %w", err)
	}
	return &job, nil
}

func wrapDialError(err error, addr string) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to daemon: %s refused the connection; verify reelcutd is running", addr)
	}
	return fmt.Errorf("connect to daemon at %s: %w", addr, err)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
