package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/declaration-signer/internal/config"
	"github.com/a3tai/declaration-signer/internal/declaration"
	pdferrors "github.com/a3tai/declaration-signer/internal/pdf/errors"
	"github.com/a3tai/declaration-signer/internal/pdf/security"
	"github.com/a3tai/declaration-signer/internal/web"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockService struct {
	mock.Mock
}

func (m *mockService) DetectFile(path string) (*declaration.Detection, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*declaration.Detection), args.Error(1)
}

func (m *mockService) Sign(ctx context.Context, req declaration.SignRequest) (*declaration.SignResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*declaration.SignResult), args.Error(1)
}

type setup struct {
	router  *gin.Engine
	service *mockService
	prefs   *config.PrefsStore
	workDir string
	outDir  string
}

func newSetup(t *testing.T) setup {
	t.Helper()
	workDir := t.TempDir()
	outDir := t.TempDir()

	paths, err := security.NewPathValidator(workDir)
	require.NoError(t, err)

	svc := new(mockService)
	prefs := config.NewPrefsStore(filepath.Join(t.TempDir(), "app_data.json"))
	h := web.NewHandler(svc, prefs, paths, outDir, "1.2.3")

	return setup{
		router:  web.Setup(h, nil),
		service: svc,
		prefs:   prefs,
		workDir: workDir,
		outDir:  outDir,
	}
}

func postForm(r *gin.Engine, path string, values url.Values) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	return w
}

func postJSON(r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, strings.NewReader(string(data)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) web.APIResponse {
	t.Helper()
	var resp web.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandler_Healthz(t *testing.T) {
	s := newSetup(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHandler_Form_PrefilledFromPreferences(t *testing.T) {
	s := newSetup(t)
	require.NoError(t, s.prefs.Save(config.Preferences{
		Name:      "Dana Levi",
		ID:        "123456789",
		Gender:    "female",
		OutputDir: "/srv/signed",
	}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `value="Dana Levi"`)
	assert.Contains(t, body, `value="123456789"`)
	assert.Contains(t, body, `value="female" selected`)
	assert.Contains(t, body, `value="/srv/signed"`)
	assert.Contains(t, body, `<option value="foreigner">`)
}

func TestHandler_Form_DefaultOutputDir(t *testing.T) {
	s := newSetup(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="`+s.outDir+`"`)
}

func TestHandler_Detect(t *testing.T) {
	s := newSetup(t)
	source := filepath.Join(s.workDir, "decl.pdf")

	s.service.On("DetectFile", source).Return(&declaration.Detection{
		Path:     source,
		Category: declaration.CategoryForeigner,
		Page:     1,
		Keyword:  "זר",
		Pages:    2,
	}, nil)

	w := postJSON(s.router, "/detect", map[string]string{"path": "decl.pdf"})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "foreigner", data["category"])
	assert.EqualValues(t, 1, data["page"])
	s.service.AssertExpectations(t)
}

func TestHandler_Detect_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing path",
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "outside working directory",
			path:       "../outside.pdf",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_INPUT",
		},
		{
			name:       "unreadable source",
			path:       "broken.pdf",
			err:        pdferrors.New(pdferrors.ErrorTypeSourceUnreadable, "failed to open PDF"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "SOURCE_UNREADABLE",
		},
		{
			name:       "no text layer",
			path:       "scan.pdf",
			err:        pdferrors.New(pdferrors.ErrorTypeDetectionFailed, "no text"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "DETECTION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSetup(t)
			if tt.err != nil {
				s.service.On("DetectFile", filepath.Join(s.workDir, tt.path)).Return(nil, tt.err)
			}

			w := postForm(s.router, "/detect", url.Values{"path": {tt.path}})

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			s.service.AssertExpectations(t)
		})
	}
}

func TestHandler_Sign_DetectsAndSavesPreferences(t *testing.T) {
	s := newSetup(t)
	source := filepath.Join(s.workDir, "acme.pdf")
	outputPath := filepath.Join(s.outDir, "acme_company_0011aabb.pdf")

	s.service.On("DetectFile", source).Return(&declaration.Detection{
		Path:     source,
		Category: declaration.CategoryCompany,
		Page:     1,
	}, nil)
	s.service.On("Sign", mock.Anything, declaration.SignRequest{
		Signer:     declaration.Signer{Name: "Avi Cohen", ID: "987654321", Gender: declaration.GenderMale},
		Category:   declaration.CategoryCompany,
		SourcePath: source,
		OutputDir:  s.outDir,
	}).Return(&declaration.SignResult{
		OutputPath: outputPath,
		Category:   declaration.CategoryCompany,
		Pages:      3,
	}, nil)

	w := postForm(s.router, "/sign", url.Values{
		"name":   {"Avi Cohen"},
		"id":     {"987654321"},
		"gender": {"male"},
		"path":   {"acme.pdf"},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, outputPath, data["output_path"])
	assert.Equal(t, true, data["detected"])
	assert.EqualValues(t, 3, data["pages"])
	s.service.AssertExpectations(t)

	prefs, err := s.prefs.Load()
	require.NoError(t, err)
	assert.Equal(t, config.Preferences{
		Name:      "Avi Cohen",
		ID:        "987654321",
		Gender:    "male",
		OutputDir: s.outDir,
	}, prefs)
}

func TestHandler_Sign_ExplicitType(t *testing.T) {
	s := newSetup(t)
	source := filepath.Join(s.workDir, "scan.pdf")
	outDir := t.TempDir()

	s.service.On("Sign", mock.Anything, mock.MatchedBy(func(req declaration.SignRequest) bool {
		return req.Category == declaration.CategoryIsraeli &&
			req.SourcePath == source &&
			req.OutputDir == outDir &&
			req.Signer.Gender == declaration.GenderFemale
	})).Return(&declaration.SignResult{OutputPath: "x.pdf", Category: declaration.CategoryIsraeli, Pages: 1}, nil)

	w := postJSON(s.router, "/sign", map[string]string{
		"name":       "Dana Levi",
		"id":         "123456789",
		"gender":     "female",
		"path":       "scan.pdf",
		"type":       "person",
		"output_dir": outDir,
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.service.AssertExpectations(t)
	s.service.AssertNotCalled(t, "DetectFile", mock.Anything)
}

func TestHandler_Sign_Errors(t *testing.T) {
	tests := []struct {
		name       string
		values     url.Values
		signErr    error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing name",
			values:     url.Values{"id": {"1"}, "gender": {"male"}, "path": {"a.pdf"}, "type": {"company"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "missing gender",
			values:     url.Values{"name": {"A"}, "id": {"1"}, "path": {"a.pdf"}, "type": {"company"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "unknown gender",
			values:     url.Values{"name": {"A"}, "id": {"1"}, "gender": {"other"}, "path": {"a.pdf"}, "type": {"company"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "unknown type",
			values:     url.Values{"name": {"A"}, "id": {"1"}, "gender": {"male"}, "path": {"a.pdf"}, "type": {"alien"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_INPUT",
		},
		{
			name:       "asset missing",
			values:     url.Values{"name": {"A"}, "id": {"1"}, "gender": {"male"}, "path": {"a.pdf"}, "type": {"company"}},
			signErr:    pdferrors.New(pdferrors.ErrorTypeAssetMissing, "signature image not found"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "ASSET_MISSING",
		},
		{
			name:       "output not writable",
			values:     url.Values{"name": {"A"}, "id": {"1"}, "gender": {"male"}, "path": {"a.pdf"}, "type": {"company"}},
			signErr:    pdferrors.New(pdferrors.ErrorTypeOutputNotWritable, "cannot write"),
			wantStatus: http.StatusForbidden,
			wantCode:   "OUTPUT_NOT_WRITABLE",
		},
		{
			name:       "unexpected error",
			values:     url.Values{"name": {"A"}, "id": {"1"}, "gender": {"male"}, "path": {"a.pdf"}, "type": {"company"}},
			signErr:    errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSetup(t)
			if tt.signErr != nil {
				s.service.On("Sign", mock.Anything, mock.Anything).Return(nil, tt.signErr)
			}

			w := postForm(s.router, "/sign", tt.values)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decode(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)

			prefs, err := s.prefs.Load()
			require.NoError(t, err)
			assert.Empty(t, prefs.Name, "preferences are only saved after a successful signing")
		})
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		errType pdferrors.ErrorType
		status  int
	}{
		{pdferrors.ErrorTypeInvalidInput, http.StatusBadRequest},
		{pdferrors.ErrorTypeSourceUnreadable, http.StatusUnprocessableEntity},
		{pdferrors.ErrorTypeDetectionFailed, http.StatusUnprocessableEntity},
		{pdferrors.ErrorTypeAssetMissing, http.StatusInternalServerError},
		{pdferrors.ErrorTypeRendererMissing, http.StatusInternalServerError},
		{pdferrors.ErrorTypeOutputNotWritable, http.StatusForbidden},
		{pdferrors.ErrorTypeWriteFailed, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.errType.String(), func(t *testing.T) {
			wrapped := errors.Join(errors.New("context"), pdferrors.New(tt.errType, "x"))
			status, code := web.MapError(wrapped)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.errType.String(), code)
		})
	}
}
