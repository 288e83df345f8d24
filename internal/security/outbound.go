// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"net/http"
	"time"

	"github.com/doyensec/safeurl"
)

// GoogleHosts はGoogle OAuthのトークン交換とユーザー情報取得で接続するホスト。
var GoogleHosts = []string{
	"accounts.google.com",
	"oauth2.googleapis.com",
	"www.googleapis.com",
	"openidconnect.googleapis.com",
}

// NewProviderClient は外部IdPとの通信用にSSRF防止機能付きのHTTPクライアントを生成する。
// 接続先はhttps:443の許可ホストに限定される。hostsが空の場合はホストを限定しない。
// safeurlはnet.DialerのControlフックでDNS解決後のIPアドレスを検証するため、
// プライベートIPやメタデータIPへの到達はDNS再バインディング経由でもブロックされる。
func NewProviderClient(timeout time.Duration, hosts ...string) *http.Client {
	builder := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("https").
		SetAllowedPorts(443).
		// リダイレクトは外側のクライアントが辿り、各ホップを再検証する
		SetCheckRedirect(func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		})
	if len(hosts) > 0 {
		builder = builder.SetAllowedHosts(hosts...)
	}

	return &http.Client{
		Transport: &allowListTransport{client: safeurl.Client(builder.Build())},
		Timeout:   timeout,
	}
}

// allowListTransport はすべてのリクエストをWrappedClient.Doに通す。
// ホストとスキームの許可リストはDoでのみ検証され、内側の*http.Clientは検証しない。
type allowListTransport struct {
	client *safeurl.WrappedClient
}

// RoundTrip は許可リストを検証してからリクエストを送信する。
func (t *allowListTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.client.Do(req)
}
