package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/pokedex/internal/model"
)

// レート制限の種別。メトリクスのラベルにも使う。
const (
	TierAuth       = "auth"
	TierCredential = "credential"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	AuthRate        rate.Limit    // 認証画面・Googleリダイレクトのレート（req/sec）
	AuthBurst       int           // 認証画面のバーストサイズ
	CredentialRate  rate.Limit    // パスワード送信のレート（req/sec）
	CredentialBurst int           // パスワード送信のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔

	// OnLimited はリクエストを拒否したときに呼ばれる。nilの場合は何もしない。
	OnLimited func(tier string)
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// 認証画面 30 req/min/IP、パスワード送信 10 req/min/IP。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return NewRateLimiterConfig(30, 10)
}

// NewRateLimiterConfig は1分あたりの許容リクエスト数から設定を生成する。
func NewRateLimiterConfig(authPerMinute, credentialPerMinute int) RateLimiterConfig {
	return RateLimiterConfig{
		AuthRate:        rate.Limit(float64(authPerMinute) / 60.0),
		AuthBurst:       authPerMinute,
		CredentialRate:  rate.Limit(float64(credentialPerMinute) / 60.0),
		CredentialBurst: credentialPerMinute,
		CleanupInterval: 5 * time.Minute,
	}
}

// clientLimiter はクライアントごとのレートリミッターとアクセス時刻を保持する。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet は1つの種別に属するクライアントごとのリミッター群。
type limiterSet struct {
	tier  string
	rate  rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*clientLimiter
}

func newLimiterSet(tier string, r rate.Limit, burst int) *limiterSet {
	return &limiterSet{
		tier:     tier,
		rate:     r,
		burst:    burst,
		limiters: make(map[string]*clientLimiter),
	}
}

// allow はクライアントのリミッターを取得または作成し、1トークン消費できるかを返す。
func (s *limiterSet) allow(key string, now time.Time) bool {
	s.mu.Lock()
	cl, exists := s.limiters[key]
	if !exists {
		cl = &clientLimiter{limiter: rate.NewLimiter(s.rate, s.burst)}
		s.limiters[key] = cl
	}
	cl.lastAccess = now
	s.mu.Unlock()

	return cl.limiter.AllowN(now, 1)
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// sweep は最終アクセスからttlを超えたエントリを削除する。
func (s *limiterSet) sweep(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cl := range s.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(s.limiters, key)
		}
	}
}

// RateLimiter はクライアントIPごとのレート制限を管理する。
// 認証画面向けとパスワード送信向けの2種類を提供する。
type RateLimiter struct {
	config     RateLimiterConfig
	auth       *limiterSet
	credential *limiterSet

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:     config,
		auth:       newLimiterSet(TierAuth, config.AuthRate, config.AuthBurst),
		credential: newLimiterSet(TierCredential, config.CredentialRate, config.CredentialBurst),
		stopCh:     make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// AuthMiddleware は認証画面とGoogleリダイレクト向けのレート制限ミドルウェアを返す。
func (rl *RateLimiter) AuthMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.auth)
}

// CredentialMiddleware はパスワード送信向けのレート制限ミドルウェアを返す。
// AuthMiddlewareとは独立に動作する。
func (rl *RateLimiter) CredentialMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.credential)
}

func (rl *RateLimiter) middleware(set *limiterSet) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			if !set.allow(ip, time.Now()) {
				slog.Warn("rate limit exceeded",
					slog.String("client_ip", ip),
					slog.String("limit_type", set.tier),
				)
				if rl.config.OnLimited != nil {
					rl.config.OnLimited(set.tier)
				}
				writeRateLimitResponse(w, set.rate)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuthLimiterCount は現在管理されている認証画面リミッターのエントリ数を返す。
// テスト用。
func (rl *RateLimiter) AuthLimiterCount() int {
	return rl.auth.len()
}

// CredentialLimiterCount は現在管理されているパスワード送信リミッターのエントリ数を返す。
// テスト用。
func (rl *RateLimiter) CredentialLimiterCount() int {
	return rl.credential.len()
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.config.CleanupInterval * 2
	rl.auth.sweep(now, ttl)
	rl.credential.sweep(now, ttl)
}

// clientIP はRemoteAddrからポートを除いたIPアドレスを返す。
// プロキシ配下ではchiのRealIPミドルウェアを前段に置く。
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := 1
	if r > 0 {
		retryAfterSec = int(math.Ceil(1.0 / float64(r)))
	}
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitedError())
}
