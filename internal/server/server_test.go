package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"dmaker/internal/db"
	"dmaker/internal/engine"
	"dmaker/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn)
	handler, err := New(Config{Engine: e, Auth: auth})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return envelope.Error.Code
}

func createBody(memberID string) map[string]any {
	return map[string]any{
		"level":           "SENIOR",
		"skillType":       "BACK_END",
		"experienceYears": 12,
		"memberId":        memberID,
		"name":            "kim",
		"age":             32,
	}
}

func TestDeveloperLifecycle(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	// create
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/create-developer", createBody("dev-1"), nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}
	var created DeveloperDetailResponse
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("unmarshal created: %v", err)
	}
	if created.MemberID != "dev-1" || created.StatusCode != "EMPLOYED" {
		t.Fatalf("unexpected created: %+v", created)
	}

	// listing shows the summary projection only
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/developers", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	var listing []map[string]any
	if err := json.Unmarshal(data, &listing); err != nil {
		t.Fatalf("unmarshal listing: %v", err)
	}
	if len(listing) != 1 {
		t.Fatalf("expected 1 employed, got %d", len(listing))
	}
	if listing[0]["memberId"] != "dev-1" || listing[0]["developerLevel"] != "SENIOR" {
		t.Fatalf("unexpected summary: %+v", listing[0])
	}
	if _, ok := listing[0]["name"]; ok {
		t.Fatalf("summary should not carry the name")
	}

	// detail
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/developers/dev-1", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("detail status %d: %s", res.StatusCode, string(data))
	}
	var detail DeveloperDetailResponse
	_ = json.Unmarshal(data, &detail)
	if detail.Name != "kim" || detail.ExperienceYears != 12 {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	// edit
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/developer/dev-1", map[string]any{
		"level":           "JUNGNIOR",
		"skillType":       "FULL_STACK",
		"experienceYears": 8,
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("edit status %d: %s", res.StatusCode, string(data))
	}
	var edited DeveloperDetailResponse
	_ = json.Unmarshal(data, &edited)
	if edited.Level != "JUNGNIOR" || edited.ExperienceYears != 8 {
		t.Fatalf("edit not applied: %+v", edited)
	}

	// retire
	res, data = doJSON(t, client, http.MethodDelete, srv.URL+"/developer/dev-1", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("retire status %d: %s", res.StatusCode, string(data))
	}
	var retired DeveloperDetailResponse
	_ = json.Unmarshal(data, &retired)
	if retired.StatusCode != "RETIRED" {
		t.Fatalf("expected RETIRED, got %s", retired.StatusCode)
	}

	// retired developers drop out of the employed listing
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/developers", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	listing = nil
	_ = json.Unmarshal(data, &listing)
	if len(listing) != 0 {
		t.Fatalf("expected empty listing, got %d", len(listing))
	}

	// but the detail remains readable
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/developers/dev-1", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("detail after retire status %d", res.StatusCode)
	}

	// and a snapshot landed in the retired store
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/retired-developers", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("retired list status %d: %s", res.StatusCode, string(data))
	}
	var snapshots []RetiredDeveloperResponse
	_ = json.Unmarshal(data, &snapshots)
	if len(snapshots) != 1 || snapshots[0].MemberID != "dev-1" {
		t.Fatalf("unexpected snapshots: %+v", snapshots)
	}
}

func TestErrorCodesAreDistinguishable(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	if res, data := doJSON(t, client, http.MethodPost, srv.URL+"/create-developer", createBody("dev-1"), nil); res.StatusCode != http.StatusCreated {
		t.Fatalf("seed create status %d: %s", res.StatusCode, string(data))
	}

	// duplicate member id
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/create-developer", createBody("dev-1"), nil)
	if res.StatusCode != http.StatusConflict || errorCode(t, data) != "duplicated_member_id" {
		t.Fatalf("duplicate: status %d code %s", res.StatusCode, string(data))
	}

	// level/experience mismatch
	body := createBody("dev-2")
	body["level"] = "JUNIOR"
	body["experienceYears"] = 9
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/create-developer", body, nil)
	if res.StatusCode != http.StatusBadRequest || errorCode(t, data) != "level_experience_mismatch" {
		t.Fatalf("mismatch: status %d body %s", res.StatusCode, string(data))
	}

	// unknown member id
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/developers/missing", nil, nil)
	if res.StatusCode != http.StatusNotFound || errorCode(t, data) != "no_developer" {
		t.Fatalf("not found: status %d body %s", res.StatusCode, string(data))
	}

	// structurally invalid request: missing body
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/create-developer", nil, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing body: status %d body %s", res.StatusCode, string(data))
	}

	// structurally invalid request: negative experience years
	body = createBody("dev-3")
	body["experienceYears"] = -1
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/create-developer", body, nil)
	if res.StatusCode != http.StatusBadRequest || errorCode(t, data) != "bad_request" {
		t.Fatalf("negative years: status %d body %s", res.StatusCode, string(data))
	}

	// unknown enum value
	body = createBody("dev-4")
	body["level"] = "WIZARD"
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/create-developer", body, nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad enum: status %d body %s", res.StatusCode, string(data))
	}
}

func TestEditErrorOrdering(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	// mismatched candidate values on a nonexistent member id report the
	// mismatch rather than the absence
	res, data := doJSON(t, client, http.MethodPut, srv.URL+"/developer/missing", map[string]any{
		"level":           "SENIOR",
		"skillType":       "BACK_END",
		"experienceYears": 2,
	}, nil)
	if res.StatusCode != http.StatusBadRequest || errorCode(t, data) != "level_experience_mismatch" {
		t.Fatalf("expected mismatch first: status %d body %s", res.StatusCode, string(data))
	}

	// valid candidate values report the absence
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/developer/missing", map[string]any{
		"level":           "SENIOR",
		"skillType":       "BACK_END",
		"experienceYears": 12,
	}, nil)
	if res.StatusCode != http.StatusNotFound || errorCode(t, data) != "no_developer" {
		t.Fatalf("expected not found: status %d body %s", res.StatusCode, string(data))
	}
}

func TestDoubleRetireAppendsSnapshots(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	if res, data := doJSON(t, client, http.MethodPost, srv.URL+"/create-developer", createBody("dev-1"), nil); res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}
	for i := 0; i < 2; i++ {
		if res, data := doJSON(t, client, http.MethodDelete, srv.URL+"/developer/dev-1", nil, nil); res.StatusCode != http.StatusOK {
			t.Fatalf("retire %d status %d: %s", i, res.StatusCode, string(data))
		}
	}
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/retired-developers", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("retired list status %d: %s", res.StatusCode, string(data))
	}
	var snapshots []RetiredDeveloperResponse
	_ = json.Unmarshal(data, &snapshots)
	if len(snapshots) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snapshots))
	}
}

func TestEventsEndpointRecordsActor(t *testing.T) {
	srv, cleanup := newTestServer(t, AuthConfig{})
	defer cleanup()
	client := srv.Client()

	headers := map[string]string{"X-Actor-Id": "hr-bot"}
	if res, data := doJSON(t, client, http.MethodPost, srv.URL+"/create-developer", createBody("dev-1"), headers); res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/events?memberId=dev-1", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events status %d: %s", res.StatusCode, string(data))
	}
	var events []EventResponse
	if err := json.Unmarshal(data, &events); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	if len(events) != 1 || events[0].Type != "developer.created" {
		t.Fatalf("unexpected events: %+v", events)
	}
	if events[0].ActorID != "hr-bot" {
		t.Fatalf("expected actor hr-bot, got %q", events[0].ActorID)
	}
}

func TestJWTAuthEnforced(t *testing.T) {
	secret := "test-secret"
	srv, cleanup := newTestServer(t, AuthConfig{JWTSecret: secret})
	defer cleanup()
	client := srv.Client()

	// no credentials
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/developers", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}

	// health stays open
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", res.StatusCode)
	}

	// valid token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "hr-bot",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	headers := map[string]string{"Authorization": "Bearer " + signed}
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/create-developer", createBody("dev-1"), headers)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("authed create status %d: %s", res.StatusCode, string(data))
	}

	// journal records the token subject as actor
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/events?memberId=dev-1", nil, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events status %d: %s", res.StatusCode, string(data))
	}
	var events []EventResponse
	_ = json.Unmarshal(data, &events)
	if len(events) != 1 || events[0].ActorID != "hr-bot" {
		t.Fatalf("unexpected events: %+v", events)
	}

	// garbage token rejected
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/developers", nil, map[string]string{"Authorization": "Bearer nope"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", res.StatusCode)
	}
}
