package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/constants"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// ObjectStorage hands out signed URLs so file bytes never pass through us.
type ObjectStorage interface {
	SignedUploadURL(ctx context.Context, path string) (string, error)
	SignedDownloadURL(ctx context.Context, path string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, path string) error
}

// AuthAdmin updates the role claim on the hosted auth user.
type AuthAdmin interface {
	SetRole(ctx context.Context, userID uuid.UUID, role models.UserRole) error
}

// SupabaseClient talks to the storage and auth admin REST APIs with the
// service role key.
type SupabaseClient struct {
	baseURL    string
	serviceKey string
	bucket     string
	http       *http.Client
}

func NewSupabaseClient(baseURL, serviceKey, bucket string) *SupabaseClient {
	return &SupabaseClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		http:       &http.Client{Timeout: constants.StorageRequestTimeout},
	}
}

func (c *SupabaseClient) SignedUploadURL(ctx context.Context, path string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/storage/v1/object/upload/sign/"+c.bucket+"/"+escapePath(path), map[string]any{})
	if err != nil {
		return "", err
	}
	rel := gjson.GetBytes(body, "url").String()
	if rel == "" {
		return "", fmt.Errorf("%w: storage: signed upload url missing", utils.ErrExternalServiceFailure)
	}
	return c.baseURL + "/storage/v1" + rel, nil
}

func (c *SupabaseClient) SignedDownloadURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/storage/v1/object/sign/"+c.bucket+"/"+escapePath(path), map[string]any{
		"expiresIn": int(ttl.Seconds()),
	})
	if err != nil {
		return "", err
	}
	rel := gjson.GetBytes(body, "signedURL").String()
	if rel == "" {
		return "", fmt.Errorf("%w: storage: signed url missing", utils.ErrExternalServiceFailure)
	}
	return c.baseURL + "/storage/v1" + rel, nil
}

func (c *SupabaseClient) Remove(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, "/storage/v1/object/"+c.bucket, map[string]any{
		"prefixes": []string{path},
	})
	return err
}

func (c *SupabaseClient) SetRole(ctx context.Context, userID uuid.UUID, role models.UserRole) error {
	_, err := c.do(ctx, http.MethodPut, "/auth/v1/admin/users/"+userID.String(), map[string]any{
		"app_metadata": map[string]string{"role": string(role)},
	})
	return err
}

func (c *SupabaseClient) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	if c.baseURL == "" || c.serviceKey == "" {
		return nil, fmt.Errorf("%w: supabase not configured", utils.ErrExternalServiceFailure)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: supabase %s %s: %v", utils.ErrExternalServiceFailure, method, path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = gjson.GetBytes(body, "msg").String()
		}
		return nil, fmt.Errorf("%w: supabase %s %s: status %d: %s", utils.ErrExternalServiceFailure, method, path, resp.StatusCode, msg)
	}
	return body, nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
