package api_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/intelliemail/intelliemail/internal/api"
)

const testOwnerID int64 = 42

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

func newTestRouter() *gin.Engine {
	return gin.New()
}

// doRequest performs an HTTP request with the owner header set and returns
// the recorder.
func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	return doRequestAs(r, method, path, body, strconv.FormatInt(testOwnerID, 10))
}

// doRequestAs performs an HTTP request with an explicit owner header value;
// an empty owner omits the header entirely.
func doRequestAs(r *gin.Engine, method, path, body, owner string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}

	if owner != "" {
		req.Header.Set(api.OwnerIDHeader, owner)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}
