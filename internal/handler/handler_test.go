package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/markbates/goth/gothic"
	"github.com/stretchr/testify/require"

	"medvault/internal/ai"
	"medvault/internal/config"
	"medvault/internal/logger"
	"medvault/internal/model"
	"medvault/internal/repository/memory"
	"medvault/internal/service"
	"medvault/internal/storage"
)

// handlerFixture wires the handlers over in-memory repositories and mock
// clients, with a real session store so requests authenticate the way
// browser requests do.
type handlerFixture struct {
	e          *echo.Echo
	user       *model.User
	cookies    []*http.Cookie
	analyzer   *ai.MockAnalyzer
	store      *storage.MockStore
	userRepo   *memory.MemoryUserRepository
	recordRepo *memory.MemoryHealthRecordRepository

	documents *DocumentHandler
	shares    *ShareHandler
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	cfg := &config.Config{
		BaseURL:            "http://localhost:8080",
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		SessionSecret:      "handler-test-secret",
	}
	e := echo.New()
	lg := logger.NewWithWriter(io.Discard)

	userRepo := memory.NewMemoryUserRepository()
	recordRepo := memory.NewMemoryHealthRecordRepository()
	shareRepo := memory.NewMemoryShareRepository()
	prefsRepo := memory.NewMemoryPreferencesRepository()

	analyzer := &ai.MockAnalyzer{}
	store := storage.NewMockStore()

	authService := service.NewAuthService(userRepo, lg)
	documentService := service.NewDocumentService(recordRepo, analyzer, store, lg)
	shareService := service.NewShareService(shareRepo, recordRepo, lg)
	prefsService := service.NewPreferencesService(prefsRepo, lg)

	auth := NewAuthHandler(authService, cfg, e.Logger)

	f := &handlerFixture{
		e:          e,
		analyzer:   analyzer,
		store:      store,
		userRepo:   userRepo,
		recordRepo: recordRepo,
		documents:  NewDocumentHandler(documentService, prefsService, auth, e.Logger),
		shares:     NewShareHandler(shareService, auth, e.Logger),
	}
	f.user = f.addUser(t, "google_owner", "owner@example.com")
	f.cookies = f.login(t, f.user.ID)
	return f
}

func (f *handlerFixture) addUser(t *testing.T, googleID, email string) *model.User {
	t.Helper()
	user := model.NewUser(googleID, email, "Test User", "tok", "ref", time.Now().Add(time.Hour))
	require.NoError(t, f.userRepo.Create(context.Background(), user))
	return user
}

// login fabricates the session cookie the OAuth callback would have set.
func (f *handlerFixture) login(t *testing.T, userID string) []*http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	session, err := gothic.Store.Get(req, "gothic_session")
	require.NoError(t, err)
	session.Values["user_id"] = userID
	require.NoError(t, session.Save(req, rec))
	return rec.Result().Cookies()
}

func (f *handlerFixture) seedRecord(t *testing.T, userID, filename string) *model.HealthRecord {
	t.Helper()
	analysis := &model.DocumentAnalysis{
		Status:     model.AnalysisStatusSuccess,
		RecordType: "lab_report",
		RecordName: "Blood Panel",
		Summary:    "Routine blood panel results.",
	}
	record := model.NewHealthRecord(userID, userID+"/"+filename, filename, analysis)
	require.NoError(t, f.recordRepo.Create(context.Background(), record))
	return record
}

func (f *handlerFixture) jsonContext(method, target, body string, cookies []*http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	return f.e.NewContext(req, rec), rec
}
