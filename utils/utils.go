package utils

import (
	"errors"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"
)

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// Claims carried by both token kinds. Refresh tokens only fill UserID;
// access tokens embed the full identity so requests authorize without a
// user lookup.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func signClaims(claims Claims, ttl time.Duration, secret string) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func GenerateAccessToken(userID, email, role string, accessTTL time.Duration) (string, error) {
	return signClaims(Claims{UserID: userID, Email: email, Role: role},
		accessTTL, os.Getenv("JWT_SECRET"))
}

func GenerateRefreshToken(userID string, refreshTTL time.Duration) (string, error) {
	return signClaims(Claims{UserID: userID},
		refreshTTL, os.Getenv("JWT_REFRESH_SECRET"))
}

func ValidateToken(tokenStr, secret string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func ValidateAccessToken(tokenStr string) (*Claims, error) {
	return ValidateToken(tokenStr, os.Getenv("JWT_SECRET"))
}

func ValidateRefreshToken(tokenStr string) (*Claims, error) {
	return ValidateToken(tokenStr, os.Getenv("JWT_REFRESH_SECRET"))
}

// AccessTTL is short so a stale role claim is bounded; see the session
// middleware for the per-request liveness check that closes the rest.
func AccessTTL() time.Duration {
	return time.Duration(envIntMin("ACCESS_TOKEN_TTL_MINUTES", 15)) * time.Minute
}

func RefreshTTL() time.Duration {
	return time.Duration(envIntMin("REFRESH_TOKEN_TTL_DAYS", 7)) * 24 * time.Hour
}

func envIntMin(key string, def int) int {
	n, _ := strconv.Atoi(os.Getenv(key))
	if n <= 0 {
		return def
	}
	return n
}

// The refresh cookie is scoped to /auth so it travels only on refresh and
// logout, never on regular API calls.
func SetRefreshCookie(c *gin.Context, token string) {
	c.SetCookie("refreshToken", token, int(RefreshTTL().Seconds()), "/auth",
		os.Getenv("COOKIE_DOMAIN"), os.Getenv("COOKIE_SECURE") == "true", true)
}

func ClearRefreshCookie(c *gin.Context) {
	c.SetCookie("refreshToken", "", -1, "/auth",
		os.Getenv("COOKIE_DOMAIN"), os.Getenv("COOKIE_SECURE") == "true", true)
}

// IsDuplicateKey reports whether err is a Mongo unique-index violation.
func IsDuplicateKey(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if isDupCode(e.Code) {
				return true
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if isDupCode(e.Code) {
				return true
			}
		}
	}
	return strings.Contains(err.Error(), "E11000 duplicate key error")
}

func isDupCode(code int) bool {
	return code == 11000 || code == 11001
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug folds accents and collapses everything else to hyphens, so
// "Déjà Vu" and "deja vu" land on the same category.
func GenerateSlug(name string) string {
	var b strings.Builder
	for _, r := range norm.NFD.String(name) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	slug := nonSlug.ReplaceAllString(strings.ToLower(b.String()), "-")
	return strings.Trim(slug, "-")
}

func ParseIntDefault(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// ParseBoolQuery distinguishes "not provided" (nil) from true/false.
func ParseBoolQuery(value string) (*bool, error) {
	if value == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func GetDefaultQueryLimits() (maxLimit, defaultLimit int) {
	maxLimit = ParseIntDefault(os.Getenv("READ_QUERY_MAX_LIMIT"), 100)
	defaultLimit = ParseIntDefault(os.Getenv("DEFAULT_READ_QUERY_LIMIT"), 20)
	return maxLimit, defaultLimit
}

// Pagination clamps page/limit query values against the configured limits.
func Pagination(c *gin.Context) (page, limit int, skip int64) {
	maxLimit, defaultLimit := GetDefaultQueryLimits()
	page = ParseIntDefault(c.Query("page"), 1)
	limit = ParseIntDefault(c.Query("limit"), defaultLimit)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	skip = int64(page-1) * int64(limit)
	return page, limit, skip
}
