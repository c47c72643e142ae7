package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/lessondesk/apps/api/echo"
	"github.com/trezcool/lessondesk/apps/shared"
	"github.com/trezcool/lessondesk/core"
	"github.com/trezcool/lessondesk/core/lesson"
	dummydb "github.com/trezcool/lessondesk/storage/database/dummy"
	dummysheet "github.com/trezcool/lessondesk/storage/sheets/dummy"
	"github.com/trezcool/lessondesk/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	app   Server
	conf  *core.Config
	store *dummysheet.Store
	svc   *lesson.Service
	token string
}

func setup(t *testing.T) env {
	conf := testutil.NewConfig(t)
	conf.Batch.Pause = 0
	logger := testutil.NewLogger(t)

	// set up stores
	store := dummysheet.New()
	testutil.SeedWorkbook(t, store)
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}

	// set up services
	settings, err := lesson.NewSettings(context.Background(), conf, nil /* properties */)
	if err != nil {
		t.Fatalf("NewSettings() failed: %v", err)
	}
	svc := lesson.NewService(lesson.Deps{
		Settings: settings,
		Workbook: store,
		History:  dummydb.NewHistoryRepository(db),
		Prompter: NewLogPrompter(logger),
		Logger:   logger,
	})

	// set up server
	validate, translator := shared.NewValidator()
	app := NewServer(
		ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Service:    svc,
			Validate:   validate,
			Translator: translator,
		},
	)
	return env{app: app, conf: conf, store: store, svc: svc, token: getToken(t, conf, testutil.Actor)}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest posts `content` as the multipart file `filename`, along with `fields`.
func newUploadRequest(t *testing.T, path, token, filename string, content []byte, fields map[string]string) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() failed: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile() failed: %v", err)
		}
		if _, err = fw.Write(content); err != nil {
			t.Fatalf("Write() failed: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req, httptest.NewRecorder()
}

func getToken(t *testing.T, conf *core.Config, actor core.Actor) string {
	token, err := GenerateToken(NewClaims(actor, conf), conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
	assert.NotNil(t, v)
}
