package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/reconhub/backend/src/config"
	"github.com/username/reconhub/backend/src/logger"
	"github.com/username/reconhub/backend/src/model"
	"github.com/username/reconhub/backend/src/models"
	"github.com/username/reconhub/backend/src/services"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

const testAdminPassword = "correct horse"

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

type testApp struct {
	db     *sql.DB
	router chi.Router
	auth   services.AuthService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range []string{
		`CREATE TABLE master_data (
			product_code TEXT PRIMARY KEY,
			description TEXT,
			quantity INTEGER NOT NULL DEFAULT 0,
			price TEXT,
			final_amount TEXT,
			last_updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE update_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id TEXT NOT NULL,
			details TEXT NOT NULL,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	config.Cfg = &config.AppConfig{
		MaxUploadSizeBytes: 1 << 20,
		UploadDir:          t.TempDir(),
		ResultsDir:         t.TempDir(),
		JWTSecret:          "test-secret-key-that-is-long-enough-0001",
		AdminPasswordHash:  string(hash),
		AdminTokenExpiry:   time.Hour,
	}

	summaryCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)
	reconcileService := services.NewReconcileService(db, summaryCache)
	productService := services.NewProductService(db)
	authService := services.NewAuthService(config.Cfg.JWTSecret, config.Cfg.AdminPasswordHash, config.Cfg.AdminTokenExpiry)

	uploadHandler := NewUploadHandler(reconcileService)
	productHandler := NewProductHandler(productService)
	authHandler := NewAuthHandler(authService)
	auditHandler := NewAuditHandler(db)

	r := chi.NewRouter()
	r.Use(ContextualLoggerMiddleware)
	r.Post("/api/auth/login", authHandler.HandleLogin)
	r.Post("/api/upload", uploadHandler.HandleUpload)
	r.Get("/api/reconciliations/latest", uploadHandler.HandleLatestSummary)
	r.Get("/api/reconciliations/{batchID}", uploadHandler.HandleBatchSummary)
	r.Get("/api/products", productHandler.HandleList)
	r.Get("/api/audit", auditHandler.HandleList)
	r.Group(func(r chi.Router) {
		r.Use(AdminAuthMiddleware(authService))
		r.Post("/api/products", productHandler.HandleSave)
		r.Delete("/api/products/{productCode}", productHandler.HandleDelete)
	})

	return &testApp{db: db, router: r, auth: authService}
}

func (app *testApp) seed(t *testing.T, code, price string, quantity int) {
	t.Helper()
	svc := services.NewProductService(app.db)
	_, err := svc.Save(services.ProductInput{
		ProductCode: code,
		Description: code,
		Price:       price,
		Quantity:    strconv.Itoa(quantity),
	})
	require.NoError(t, err)
}

func (app *testApp) adminToken(t *testing.T) string {
	t.Helper()
	token, err := app.auth.Login(testAdminPassword)
	require.NoError(t, err)
	return token
}

func multipartCSV(t *testing.T, filename, content, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(map[string][]string)
	header["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	header["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHandleUploadReturnsWorkbookAndBatchHeader(t *testing.T) {
	app := newTestApp(t)
	app.seed(t, "SC8000", "10.00", 0)

	body, contentType := multipartCSV(t, "upload.csv", "product_code,quantity\nSC8000,5\n", "text/csv")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Batch-Id"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "reconciled_")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.StatusUpdated, rows[1][2])

	// The batch summary is queryable afterwards.
	batchID := rec.Header().Get("X-Batch-Id")
	req = httptest.NewRequest(http.MethodGet, "/api/reconciliations/"+batchID, nil)
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary models.ReconciliationSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Matched)
}

func TestHandleUploadRejectsStructurallyInvalidFile(t *testing.T) {
	app := newTestApp(t)

	body, contentType := multipartCSV(t, "upload.csv", "name,price\nWidget,9.99\n", "text/csv")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var summary models.ReconciliationSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "Missing required column: product_code", summary.Error)
}

func TestHandleUploadRejectsDisallowedContentType(t *testing.T) {
	app := newTestApp(t)

	body, contentType := multipartCSV(t, "payload.csv", "product_code\nA\n", "application/x-msdownload")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUploadRejectsBinaryContent(t *testing.T) {
	app := newTestApp(t)

	body, contentType := multipartCSV(t, "upload.csv", "\x7fELF\x00\x01\x02", "text/csv")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUploadMissingFileField(t *testing.T) {
	app := newTestApp(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("something", "else"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLatestSummaryNotFound(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/reconciliations/latest", nil)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleLoginIssuesToken(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"password":"correct horse"}`))
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["token"])
}

func TestHandleLoginWrongPassword(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"password":"nope"}`))
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"product_code":"X","price":"1.00","quantity":"1"}`))
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"product_code":"X","price":"1.00","quantity":"1"}`))
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminProductLifecycle(t *testing.T) {
	app := newTestApp(t)
	token := app.adminToken(t)

	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"product_code":"SC8000","description":"cutter","price":"10.00","quantity":"2"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var saved model.MasterRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, "SC8000", saved.ProductCode)

	req = httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []model.MasterRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	req = httptest.NewRequest(http.MethodDelete, "/api/products/SC8000", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/products/SC8000", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminSaveInvalidInput(t *testing.T) {
	app := newTestApp(t)
	token := app.adminToken(t)

	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"product_code":"","price":"1.00","quantity":"1"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAuditList(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, model.InsertAuditEntry(app.db, "batch-1", "Product: A | Qty: 1 -> 2"))
	require.NoError(t, model.InsertAuditEntry(app.db, "batch-2", "Product: B | "))

	req := httptest.NewRequest(http.MethodGet, "/api/audit", nil)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []model.AuditEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)

	req = httptest.NewRequest(http.MethodGet, "/api/audit?batch_id=batch-1", nil)
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "batch-1", entries[0].BatchID)

	req = httptest.NewRequest(http.MethodGet, "/api/audit?limit=bogus", nil)
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
