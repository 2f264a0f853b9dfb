package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/the-holiday/member-portal-api/internal/adapters/httpapi"
	memclock "github.com/the-holiday/member-portal-api/internal/adapters/memory/clock"
	memidempotency "github.com/the-holiday/member-portal-api/internal/adapters/memory/idempotency"
	memidentity "github.com/the-holiday/member-portal-api/internal/adapters/memory/identity"
	memplanrepo "github.com/the-holiday/member-portal-api/internal/adapters/memory/planrepo"
	memprofilerepo "github.com/the-holiday/member-portal-api/internal/adapters/memory/profilerepo"
	pgidempotency "github.com/the-holiday/member-portal-api/internal/adapters/postgres/idempotency"
	pgplanrepo "github.com/the-holiday/member-portal-api/internal/adapters/postgres/planrepo"
	pgprofilerepo "github.com/the-holiday/member-portal-api/internal/adapters/postgres/profilerepo"
	postgres_testutil "github.com/the-holiday/member-portal-api/internal/adapters/postgres/testutil"
	"github.com/the-holiday/member-portal-api/internal/app/account"
	"github.com/the-holiday/member-portal-api/internal/app/dashboard"
	"github.com/the-holiday/member-portal-api/internal/domain"
	"github.com/the-holiday/member-portal-api/internal/platform/authevents"
	idempotencyport "github.com/the-holiday/member-portal-api/internal/ports/out/idempotency"
	"github.com/the-holiday/member-portal-api/internal/ports/out/identity"
	planrepoport "github.com/the-holiday/member-portal-api/internal/ports/out/planrepo"
	profilerepoport "github.com/the-holiday/member-portal-api/internal/ports/out/profilerepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

// goldPlanID is the plan new itest members are enrolled in by the signup hook.
const goldPlanID = domain.PlanID("7d6f4a1e-1c2b-4f8e-9a51-0b8c3f1e2a02")

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

// seeder stages the rows the hosted backend would own.
type seeder interface {
	PutProfile(ctx context.Context, p profilerepoport.Profile) error
	PutPlan(ctx context.Context, p planrepoport.Plan) error
}

type memorySeeder struct {
	profiles *memprofilerepo.Repo
	plans    *memplanrepo.Repo
}

func (s memorySeeder) PutProfile(ctx context.Context, p profilerepoport.Profile) error {
	return s.profiles.Put(ctx, p)
}

func (s memorySeeder) PutPlan(ctx context.Context, p planrepoport.Plan) error {
	return s.plans.Put(ctx, p)
}

type testServer struct {
	baseURL string
	client  *http.Client
	clk     *memclock.ManualClock
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	quiet := log.New(io.Discard, "", 0)

	var (
		profileRepo profilerepoport.Repository
		planRepo    planrepoport.Repository
		idemStore   idempotencyport.Store
		seed        seeder
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		profileRepo = pgprofilerepo.NewRepo(pool)
		planRepo = pgplanrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, clk, time.Hour)
		seed = postgres_testutil.Seeder{Pool: pool}
	case backendMemory:
		profiles := memprofilerepo.NewRepo()
		plans := memplanrepo.NewRepo()
		profileRepo, planRepo = profiles, plans
		idemStore = memidempotency.NewStore(clk, time.Hour)
		seed = memorySeeder{profiles: profiles, plans: plans}
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	for _, p := range memplanrepo.DefaultCatalog() {
		if err := seed.PutPlan(context.Background(), p); err != nil {
			t.Fatalf("seed plan: %v", err)
		}
	}

	// New members get a Gold profile, standing in for the backend's signup trigger.
	ids := memidentity.NewService(clk, memidentity.Options{
		Bus:      authevents.NewBus(),
		HashCost: bcrypt.MinCost,
		Logger:   quiet,
		OnSignUp: func(ctx context.Context, userID domain.SubjectID, _ string, meta identity.SignUpMetadata) error {
			planID := goldPlanID
			memberID := "TH-" + strings.ToUpper(uuid.NewString()[:8])
			start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			end := start.AddDate(1, 0, 0)
			return seed.PutProfile(ctx, profilerepoport.Profile{
				ID:            domain.ProfileID(uuid.NewString()),
				UserID:        userID,
				FullName:      meta.FullName,
				MemberID:      &memberID,
				PlanID:        &planID,
				PlanStartDate: &start,
				PlanEndDate:   &end,
			})
		},
	})

	api := httpapi.NewServer(
		ids,
		account.NewService(ids, "http://portal.test", quiet),
		dashboard.NewLoader(profileRepo, planRepo, quiet),
		idemStore,
		httpapi.ServerOptions{Logger: quiet},
	)
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{AccessLog: quiet})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	client := srv.Client()
	client.Jar = jar
	// Redirects are asserted on, not followed.
	client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	return &testServer{
		baseURL: srv.URL,
		client:  client,
		clk:     clk,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, body any, hdr map[string]string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", status, wantStatus, string(body))
	}
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireRedirect(t *testing.T, status int, hdr http.Header, want string) {
	t.Helper()
	if status != http.StatusSeeOther {
		t.Fatalf("status=%d want=%d", status, http.StatusSeeOther)
	}
	if got := hdr.Get("Location"); got != want {
		t.Fatalf("Location=%q want=%q", got, want)
	}
}
