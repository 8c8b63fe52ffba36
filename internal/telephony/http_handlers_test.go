package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func sign(token, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/zip_parse", RequireTwilioSignature("token", "https://calls.example.org/"), func(c *gin.Context) {
		WriteTwiML(c, NewResponse().Append(Hangup{}))
	})
	return r
}

func TestRequireTwilioSignature_Accepts(t *testing.T) {
	form := url.Values{"Digits": {"90210"}, "CallSid": {"CA1"}}
	req := httptest.NewRequest(http.MethodPost, "/zip_parse?campaignId=1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(signatureHeader, sign("token", "https://calls.example.org/zip_parse?campaignId=1", form))

	w := httptest.NewRecorder()
	signedRouter().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/xml" {
		t.Fatalf("expected xml content type, got %q", ct)
	}
}

func TestRequireTwilioSignature_Rejects(t *testing.T) {
	form := url.Values{"Digits": {"90210"}}
	req := httptest.NewRequest(http.MethodPost, "/zip_parse?campaignId=1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(signatureHeader, sign("wrong", "https://calls.example.org/zip_parse?campaignId=1", form))

	w := httptest.NewRecorder()
	signedRouter().ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/zip_parse", nil)
	w = httptest.NewRecorder()
	signedRouter().ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without signature, got %d", w.Code)
	}
}
