package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	sdk "github.com/bitwarden/sdk-go"
)

// Retry parameters for Bitwarden API calls.
const (
	bwsMaxRetries     = 5
	bwsInitialBackoff = 500 * time.Millisecond
)

// BWSSecretsClient wraps an authenticated Bitwarden SDK client.
type BWSSecretsClient struct {
	bw    sdk.BitwardenClientInterface
	orgID string
}

// NewBWSSecretsClient logs in with BWS_ACCESS_TOKEN and BWS_ORGANIZATION_ID
// from the environment. Login is retried with exponential backoff on 429.
func NewBWSSecretsClient() (*BWSSecretsClient, error) {
	accessToken := strings.TrimSpace(os.Getenv("BWS_ACCESS_TOKEN"))
	if accessToken == "" {
		return nil, errors.New("BWS_ACCESS_TOKEN env var is missing or empty")
	}
	orgID := strings.TrimSpace(os.Getenv("BWS_ORGANIZATION_ID"))
	if orgID == "" {
		return nil, errors.New("BWS_ORGANIZATION_ID env var is missing or empty")
	}

	bw, err := sdk.NewBitwardenClient(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("initialising Bitwarden SDK client: %w", err)
	}

	backoff := bwsInitialBackoff
	for attempt := 1; attempt <= bwsMaxRetries; attempt++ {
		err = bw.AccessTokenLogin(accessToken, nil)
		if err == nil {
			return &BWSSecretsClient{bw: bw, orgID: orgID}, nil
		}

		// sdk-go has no typed status errors; rate limits only show up in the message.
		if !strings.Contains(err.Error(), "429") &&
			!strings.Contains(err.Error(), "Too Many Requests") {
			bw.Close()
			return nil, fmt.Errorf("bitwarden access-token login failed: %w", err)
		}
		if attempt == bwsMaxRetries {
			break
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	bw.Close()
	return nil, fmt.Errorf("bitwarden access-token login failed after %d attempts: %w", bwsMaxRetries, err)
}

// Close releases resources held by the underlying SDK client.
func (c *BWSSecretsClient) Close() {
	if c != nil && c.bw != nil {
		c.bw.Close()
	}
}

// GetBWSSecrets retrieves all key/value secrets belonging to the specified
// Bitwarden project name.
func (c *BWSSecretsClient) GetBWSSecrets(projectName string) (map[string]string, error) {
	if strings.TrimSpace(projectName) == "" {
		return nil, errors.New("projectName must not be empty")
	}

	projectsResp, err := c.bw.Projects().List(c.orgID)
	if err != nil {
		Logger.WithError(err).Error("Failed to list Bitwarden projects")
		return nil, fmt.Errorf("listing Bitwarden projects: %w", err)
	}

	var projectID string
	for _, p := range projectsResp.Data {
		if strings.EqualFold(p.Name, projectName) {
			projectID = p.ID
			break
		}
	}
	if projectID == "" {
		return nil, fmt.Errorf("project %q not found in organisation %s", projectName, c.orgID)
	}

	syncResp, err := c.bw.Secrets().Sync(c.orgID, nil)
	if err != nil {
		Logger.WithError(err).Error("Failed to sync Bitwarden secrets")
		return nil, fmt.Errorf("syncing Bitwarden secrets: %w", err)
	}

	out := make(map[string]string)
	for _, s := range syncResp.Secrets {
		if s.ProjectID != nil && *s.ProjectID == projectID {
			out[s.Key] = s.Value
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no secrets found for project %q", projectName)
	}
	return out, nil
}

// Secrets is a flat key/value view over Bitwarden projects with the process
// environment as fallback.
type Secrets map[string]string

// Get returns the secret, or the environment variable of the same name.
func (s Secrets) Get(key string) string {
	if v, ok := s[key]; ok && v != "" {
		return v
	}
	return os.Getenv(key)
}

// LoadSecrets reads the named Bitwarden projects when BWS_ACCESS_TOKEN is set.
// Without a token it returns an empty Secrets so every lookup hits the
// environment, which is how local and CI runs are configured.
func LoadSecrets(projects ...string) (Secrets, error) {
	out := Secrets{}
	if strings.TrimSpace(os.Getenv("BWS_ACCESS_TOKEN")) == "" {
		Logger.Info("BWS_ACCESS_TOKEN not set; reading secrets from environment")
		return out, nil
	}

	client, err := NewBWSSecretsClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	for _, p := range projects {
		m, err := client.GetBWSSecrets(p)
		if err != nil {
			return nil, fmt.Errorf("project %s: %w", p, err)
		}
		for k, v := range m {
			out[k] = v
		}
	}
	return out, nil
}
