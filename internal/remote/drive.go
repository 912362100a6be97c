package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/benvon/workflow/internal/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	// DefaultDriveBaseURL is the Google APIs host
	DefaultDriveBaseURL = "https://www.googleapis.com"
	// DriveFileScope grants access only to files this application created
	DriveFileScope = "https://www.googleapis.com/auth/drive.file"

	googleRevokeURL = "https://oauth2.googleapis.com/revoke"
	driveTimeout    = 30 * time.Second
)

// GoogleEndpoint holds Google's OAuth endpoints including device authorization
var GoogleEndpoint = oauth2.Endpoint{
	AuthURL:       "https://accounts.google.com/o/oauth2/auth",
	TokenURL:      "https://oauth2.googleapis.com/token",
	DeviceAuthURL: "https://oauth2.googleapis.com/device/code",
	AuthStyle:     oauth2.AuthStyleInParams,
}

// TokenStore persists the drive session token between runs
type TokenStore interface {
	LoadToken(ctx context.Context) (*oauth2.Token, error)
	SaveToken(ctx context.Context, tok *oauth2.Token) error
	ClearToken(ctx context.Context) error
}

// DriveConfig configures the Drive adapter
type DriveConfig struct {
	Credentials  models.DriveCredentials
	ClientSecret string
	FileName     string
	// BaseURL overrides the Google APIs host; the Drive API lives under /drive/v3/
	BaseURL string
	// Endpoint overrides the OAuth endpoints
	Endpoint *oauth2.Endpoint
	// RevokeURL overrides the token revocation endpoint
	RevokeURL  string
	HTTPClient *http.Client
}

// Drive stores the backup file in the user's Google Drive
type Drive struct {
	mu     sync.RWMutex
	cfg    DriveConfig
	oauth  *oauth2.Config
	token  *oauth2.Token
	client *http.Client
	tokens TokenStore
	logger *zap.Logger
}

// NewDrive creates the adapter and restores a persisted session, if any
func NewDrive(ctx context.Context, cfg DriveConfig, tokens TokenStore, logger *zap.Logger) (*Drive, error) {
	if cfg.FileName == "" {
		cfg.FileName = DefaultFileName
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultDriveBaseURL
	}
	if cfg.RevokeURL == "" {
		cfg.RevokeURL = googleRevokeURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: driveTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Drive{cfg: cfg, tokens: tokens, logger: logger}
	d.oauth = d.oauthConfig(cfg.Credentials)

	tok, err := tokens.LoadToken(ctx)
	if err != nil {
		// a corrupt token only means the user has to sign in again
		logger.Warn("drive_token_unreadable", zap.Error(err))
		tok = nil
	}
	if tok != nil {
		d.setSessionLocked(tok)
	}
	return d, nil
}

func (d *Drive) oauthConfig(creds models.DriveCredentials) *oauth2.Config {
	endpoint := GoogleEndpoint
	if d.cfg.Endpoint != nil {
		endpoint = *d.cfg.Endpoint
	}
	return &oauth2.Config{
		ClientID:     strings.TrimSpace(creds.ClientID),
		ClientSecret: d.cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       []string{DriveFileScope},
	}
}

func (d *Drive) Name() string { return "drive" }

// Ready reports whether both API key and client id are configured
func (d *Drive) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg.Credentials.Complete()
}

// SignedIn reports whether a usable token is held
func (d *Drive) SignedIn() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.token != nil && (d.token.Valid() || d.token.RefreshToken != "")
}

// Configure replaces the credentials. Changing the client id drops the current
// session because its tokens belong to the previous client.
func (d *Drive) Configure(ctx context.Context, creds models.DriveCredentials) {
	d.mu.Lock()
	clientChanged := strings.TrimSpace(creds.ClientID) != d.oauth.ClientID
	d.cfg.Credentials = creds
	d.oauth = d.oauthConfig(creds)
	hadSession := d.token != nil
	if clientChanged {
		d.token = nil
		d.client = nil
	} else if d.token != nil {
		d.setSessionLocked(d.token)
	}
	d.mu.Unlock()

	if clientChanged && hadSession {
		if err := d.tokens.ClearToken(ctx); err != nil {
			d.logger.Warn("drive_token_clear_failed", zap.Error(err))
		}
	}
}

// setSessionLocked installs tok and builds the authenticated client; d.mu must be held
func (d *Drive) setSessionLocked(tok *oauth2.Token) {
	d.token = tok
	base := context.WithValue(context.Background(), oauth2.HTTPClient, d.cfg.HTTPClient)
	src := &savingTokenSource{
		src:    oauth2.ReuseTokenSource(tok, d.oauth.TokenSource(base, tok)),
		drive:  d,
		latest: tok.AccessToken,
	}
	client := oauth2.NewClient(base, src)
	client.Timeout = d.cfg.HTTPClient.Timeout
	client.Transport = &apiKeyTransport{base: client.Transport, key: strings.TrimSpace(d.cfg.Credentials.APIKey)}
	d.client = client
}

// savingTokenSource persists refreshed tokens so a restart keeps the session
type savingTokenSource struct {
	mu     sync.Mutex
	src    oauth2.TokenSource
	drive  *Drive
	latest string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	changed := tok.AccessToken != s.latest
	s.latest = tok.AccessToken
	s.mu.Unlock()

	if changed {
		s.drive.mu.Lock()
		s.drive.token = tok
		s.drive.mu.Unlock()
		// Best-effort save; the in-memory token keeps working either way.
		if err := s.drive.tokens.SaveToken(context.Background(), tok); err != nil {
			s.drive.logger.Warn("drive_token_save_failed", zap.Error(err))
		}
	}
	return tok, nil
}

// DeviceLogin describes a pending device authorization the user has to confirm
type DeviceLogin struct {
	UserCode        string    `json:"user_code"`
	VerificationURL string    `json:"verification_url"`
	ExpiresAt       time.Time `json:"expires_at"`

	response *oauth2.DeviceAuthResponse
}

// BeginDeviceLogin requests a user code for the device authorization flow
func (d *Drive) BeginDeviceLogin(ctx context.Context) (*DeviceLogin, error) {
	d.mu.RLock()
	ready := d.cfg.Credentials.Complete()
	cfg := d.oauth
	httpClient := d.cfg.HTTPClient
	d.mu.RUnlock()
	if !ready {
		return nil, ErrNotConfigured
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device auth request failed: %w", err)
	}
	verification := resp.VerificationURI
	if resp.VerificationURIComplete != "" {
		verification = resp.VerificationURIComplete
	}
	return &DeviceLogin{
		UserCode:        resp.UserCode,
		VerificationURL: verification,
		ExpiresAt:       resp.Expiry,
		response:        resp,
	}, nil
}

// CompleteDeviceLogin polls until the user confirms the code, then stores the session
func (d *Drive) CompleteDeviceLogin(ctx context.Context, login *DeviceLogin) error {
	if login == nil || login.response == nil {
		return fmt.Errorf("no pending device login")
	}
	d.mu.RLock()
	cfg := d.oauth
	httpClient := d.cfg.HTTPClient
	d.mu.RUnlock()

	tok, err := cfg.DeviceAccessToken(context.WithValue(ctx, oauth2.HTTPClient, httpClient), login.response)
	if err != nil {
		return fmt.Errorf("device authentication failed: %w", err)
	}

	d.mu.Lock()
	d.setSessionLocked(tok)
	d.mu.Unlock()

	if err := d.tokens.SaveToken(ctx, tok); err != nil {
		d.logger.Warn("drive_token_save_failed", zap.Error(err))
	}
	return nil
}

// SignOut revokes the token (best effort) and forgets the session
func (d *Drive) SignOut(ctx context.Context) error {
	d.mu.Lock()
	tok := d.token
	d.token = nil
	d.client = nil
	d.mu.Unlock()

	if tok != nil {
		value := tok.RefreshToken
		if value == "" {
			value = tok.AccessToken
		}
		if err := d.revoke(ctx, value); err != nil {
			d.logger.Warn("drive_token_revoke_failed", zap.Error(err))
		}
	}
	return d.tokens.ClearToken(ctx)
}

func (d *Drive) revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := d.cfg.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke returned status %d", resp.StatusCode)
	}
	return nil
}

// session returns a Drive service for the current token, or an error when the
// adapter cannot be used
func (d *Drive) session(ctx context.Context) (*drive.Service, error) {
	d.mu.RLock()
	complete := d.cfg.Credentials.Complete()
	client := d.client
	signedIn := d.token != nil
	baseURL := d.cfg.BaseURL
	d.mu.RUnlock()
	if !complete {
		return nil, ErrNotConfigured
	}
	if client == nil || !signedIn {
		return nil, ErrNotSignedIn
	}
	svc, err := drive.NewService(ctx,
		option.WithHTTPClient(client),
		option.WithEndpoint(strings.TrimRight(baseURL, "/")+"/drive/v3/"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return svc, nil
}

// apiKeyTransport adds the API key to every Drive request. option.WithAPIKey is
// ignored once a custom HTTP client is supplied.
type apiKeyTransport struct {
	base http.RoundTripper
	key  string
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	query := req.URL.Query()
	query.Set("key", t.key)
	req.URL.RawQuery = query.Encode()
	return t.base.RoundTrip(req)
}

// mapDriveError turns API status codes into the adapter's sentinel errors
func mapDriveError(err error, action string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: failed to %s: status %d", ErrUnauthorized, action, apiErr.Code)
		case http.StatusNotFound:
			return fmt.Errorf("%w: failed to %s: status %d", ErrNotFound, action, apiErr.Code)
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// fileQuery selects non-trashed files with the given name
func fileQuery(name string) string {
	return fmt.Sprintf("name = '%s' and trashed = false", queryEscaper.Replace(name))
}

// find returns the first non-trashed file with the backup name, or nil
func (d *Drive) find(ctx context.Context, svc *drive.Service) (*drive.File, error) {
	list, err := svc.Files.List().
		Q(fileQuery(d.fileName())).
		Spaces("drive").
		Fields("files(id,name,version)").
		PageSize(10).
		Context(ctx).
		Do()
	if err != nil {
		return nil, mapDriveError(err, "list files")
	}
	if len(list.Files) == 0 {
		return nil, nil
	}
	return list.Files[0], nil
}

func (d *Drive) fileName() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg.FileName
}

func driveRevisionOf(f *drive.File) string {
	return strconv.FormatInt(f.Version, 10)
}

// Load downloads the backup file
func (d *Drive) Load(ctx context.Context) (models.PartialSnapshot, string, error) {
	svc, err := d.session(ctx)
	if err != nil {
		return models.PartialSnapshot{}, "", err
	}

	file, err := d.find(ctx, svc)
	if err != nil {
		return models.PartialSnapshot{}, "", err
	}
	if file == nil {
		return models.PartialSnapshot{}, "", ErrNotFound
	}

	resp, err := svc.Files.Get(file.Id).Context(ctx).Download()
	if err != nil {
		return models.PartialSnapshot{}, "", mapDriveError(err, "download backup")
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.PartialSnapshot{}, "", fmt.Errorf("failed to read backup: %w", err)
	}
	snap, err := models.DecodePartialSnapshot(data)
	if err != nil {
		return models.PartialSnapshot{}, "", err
	}
	return snap, driveRevisionOf(file), nil
}

// Save updates the backup file in place, or creates it when it does not exist
func (d *Drive) Save(ctx context.Context, snap models.SyncSnapshot, baseRevision string) (string, error) {
	svc, err := d.session(ctx)
	if err != nil {
		return "", err
	}
	content, err := encodeSnapshot(snap)
	if err != nil {
		return "", err
	}

	file, err := d.find(ctx, svc)
	if err != nil {
		return "", err
	}
	if file != nil && baseRevision != "" && driveRevisionOf(file) != baseRevision {
		return "", &ConflictError{ExpectedRevision: baseRevision, CurrentRevision: driveRevisionOf(file)}
	}

	media := googleapi.ContentType("application/json")
	var saved *drive.File
	if file != nil {
		saved, err = svc.Files.Update(file.Id, &drive.File{}).
			Media(bytes.NewReader(content), media).
			Fields("id", "version").
			Context(ctx).
			Do()
		if err != nil {
			return "", mapDriveError(err, "update backup")
		}
	} else {
		saved, err = svc.Files.Create(&drive.File{Name: d.fileName(), MimeType: "application/json"}).
			Media(bytes.NewReader(content), media).
			Fields("id", "version").
			Context(ctx).
			Do()
		if err != nil {
			return "", mapDriveError(err, "create backup")
		}
	}
	return driveRevisionOf(saved), nil
}
