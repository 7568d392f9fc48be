package middlewares_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kubev2v/restquery/internal/server/middlewares"
)

var _ = Describe("Authenticator", func() {
	var (
		key    *rsa.PrivateKey
		router *gin.Engine
	)

	sign := func(method jwt.SigningMethod, signer any, claims jwt.MapClaims) string {
		token, err := jwt.NewWithClaims(method, claims).SignedString(signer)
		Expect(err).NotTo(HaveOccurred())
		return token
	}

	call := func(authorization string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/resources", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)

		var err error
		key, err = rsa.GenerateKey(rand.Reader, 2048)
		Expect(err).NotTo(HaveOccurred())

		router = gin.New()
		router.Use(middlewares.Authenticator(&key.PublicKey, "/health"))
		router.GET("/resources", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"sub": middlewares.Claims(c)["sub"]})
		})
		router.GET("/health", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
	})

	It("should accept a valid token", func() {
		token := sign(jwt.SigningMethodRS256, key, jwt.MapClaims{
			"sub": "alice",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		w := call("Bearer " + token)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"sub":"alice"}`))
	})

	It("should leave public routes open", func() {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
	})

	type testCase struct {
		name          string
		authorization func() string
		message       string
	}

	tests := []testCase{
		{
			name:          "missing header",
			authorization: func() string { return "" },
			message:       "unauthorized: missing bearer token",
		},
		{
			name:          "basic scheme",
			authorization: func() string { return "Basic YWxpY2U6c2VjcmV0" },
			message:       "unauthorized: missing bearer token",
		},
		{
			name:          "garbage token",
			authorization: func() string { return "Bearer not-a-token" },
			message:       "unauthorized: invalid token",
		},
		{
			name: "expired token",
			authorization: func() string {
				return "Bearer " + sign(jwt.SigningMethodRS256, key, jwt.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()})
			},
			message: "unauthorized: token expired",
		},
		{
			name: "token without expiry",
			authorization: func() string {
				return "Bearer " + sign(jwt.SigningMethodRS256, key, jwt.MapClaims{"sub": "alice"})
			},
			message: "unauthorized: invalid token",
		},
		{
			name: "token signed by another key",
			authorization: func() string {
				other, err := rsa.GenerateKey(rand.Reader, 2048)
				Expect(err).NotTo(HaveOccurred())
				return "Bearer " + sign(jwt.SigningMethodRS256, other, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
			},
			message: "unauthorized: invalid token",
		},
		{
			name: "hmac token",
			authorization: func() string {
				return "Bearer " + sign(jwt.SigningMethodHS256, []byte("secret"), jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
			},
			message: "unauthorized: invalid token",
		},
	}

	for _, test := range tests {
		test := test
		It("should reject a "+test.name, func() {
			w := call(test.authorization())

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(w.Body.String()).To(MatchJSON(`{"error":"` + test.message + `"}`))
		})
	}
})

var _ = Describe("LoadVerificationKey", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "jwt-key")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	write := func(pub any) string {
		der, err := x509.MarshalPKIXPublicKey(pub)
		Expect(err).NotTo(HaveOccurred())
		path := filepath.Join(dir, "key.pem")
		Expect(os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600)).To(Succeed())
		return path
	}

	It("should read an RSA key", func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		Expect(err).NotTo(HaveOccurred())

		pub, err := middlewares.LoadVerificationKey(write(&key.PublicKey))
		Expect(err).NotTo(HaveOccurred())
		Expect(pub).To(BeAssignableToTypeOf(&rsa.PublicKey{}))
	})

	It("should read an ECDSA key", func() {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		Expect(err).NotTo(HaveOccurred())

		pub, err := middlewares.LoadVerificationKey(write(&key.PublicKey))
		Expect(err).NotTo(HaveOccurred())
		Expect(pub).To(BeAssignableToTypeOf(&ecdsa.PublicKey{}))
	})

	It("should fail on anything else", func() {
		path := filepath.Join(dir, "key.pem")
		Expect(os.WriteFile(path, []byte("secret"), 0o600)).To(Succeed())

		_, err := middlewares.LoadVerificationKey(path)
		Expect(err).To(HaveOccurred())

		_, err = middlewares.LoadVerificationKey(filepath.Join(dir, "missing.pem"))
		Expect(err).To(HaveOccurred())
	})
})
