package telephony

import (
	"net/http"
	"strings"

	"callpower/pkg/logger"

	"github.com/gin-gonic/gin"
	twclient "github.com/twilio/twilio-go/client"
)

const signatureHeader = "X-Twilio-Signature"

// WriteTwiML renders r and writes it as the webhook response.
func WriteTwiML(c *gin.Context, r *Response) {
	twiml, err := r.Render()
	if err != nil {
		logger.FromGin(c).Error("twiml render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "twiml failed"})
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}

// RequireTwilioSignature rejects webhook requests whose X-Twilio-Signature
// does not match. publicBaseURL is the externally visible scheme+host the
// provider used to reach us (requests are often proxied).
func RequireTwilioSignature(authToken, publicBaseURL string) gin.HandlerFunc {
	validator := twclient.NewRequestValidator(authToken)
	base := strings.TrimRight(publicBaseURL, "/")

	return func(c *gin.Context) {
		sig := c.GetHeader(signatureHeader)
		if sig == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing signature"})
			return
		}
		if err := c.Request.ParseForm(); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
			return
		}

		params := map[string]string{}
		if c.Request.Method == http.MethodPost {
			for k, v := range c.Request.PostForm {
				if len(v) > 0 {
					params[k] = v[0]
				}
			}
		}

		if !validator.Validate(base+c.Request.URL.RequestURI(), params, sig) {
			logger.FromGin(c).Warn("twilio signature mismatch", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid signature"})
			return
		}
		c.Next()
	}
}
