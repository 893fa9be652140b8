package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// History is the conversation fetched when a session opens.
type History struct {
	Messages    []Message
	GuruName    string
	StudentName string
}

// Record is the durable copy of a locally composed message.
type Record struct {
	GuruID    string `json:"guruId"`
	StudentID string `json:"studentId"`
	Sender    Role   `json:"sender"`
	Message   string `json:"message"`
	ClientID  string `json:"clientId,omitempty"`
}

// Persister is the REST side of the pipeline. It is independent of the
// realtime transport: a message can be relayed and still fail to persist.
type Persister interface {
	History(ctx context.Context, p Participants) (History, error)
	Persist(ctx context.Context, rec Record) error
}

// APIError is a non-2xx or success=false answer from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

// APIClient talks to the backend REST API. Requests carry no timeout of their
// own; cancel ctx to give up on a hung request.
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewAPIClient(baseURL, token string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// WithToken returns a copy of the client authenticated as token.
func (c *APIClient) WithToken(token string) *APIClient {
	cp := *c
	cp.token = token
	return &cp
}

type historyResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Messages []Message `json:"messages"`
		Guru     struct {
			Username string `json:"username"`
		} `json:"guru"`
		Student struct {
			Username string `json:"username"`
		} `json:"student"`
	} `json:"data"`
}

func (c *APIClient) History(ctx context.Context, p Participants) (History, error) {
	path := "/api/chats/" + url.PathEscape(p.GuruID) + "/" + url.PathEscape(p.StudentID)

	var resp historyResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return History{}, fmt.Errorf("fetch history: %w", err)
	}
	if !resp.Success {
		return History{}, fmt.Errorf("fetch history: %w", &APIError{StatusCode: http.StatusOK, Message: resp.Error})
	}

	return History{
		Messages:    resp.Data.Messages,
		GuruName:    resp.Data.Guru.Username,
		StudentName: resp.Data.Student.Username,
	}, nil
}

type successResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (c *APIClient) Persist(ctx context.Context, rec Record) error {
	var resp successResponse
	if err := c.do(ctx, http.MethodPost, "/api/chats/messages", rec, &resp); err != nil {
		return fmt.Errorf("persist message: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("persist message: %w", &APIError{StatusCode: http.StatusOK, Message: resp.Error})
	}
	return nil
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Role     Role   `json:"role"`
	} `json:"user"`
}

// Login exchanges credentials for the identity the CLI persists locally.
func (c *APIClient) Login(ctx context.Context, email, password string) (Identity, error) {
	body := map[string]string{"email": email, "password": password}

	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return Identity{}, fmt.Errorf("login: %w", err)
	}
	return Identity{
		UserID:   resp.User.ID,
		Role:     resp.User.Role,
		Username: resp.User.Username,
		Token:    resp.Token,
	}, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return &APIError{StatusCode: res.StatusCode, Message: e.Error}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
