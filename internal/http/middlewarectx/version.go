package middlewarectx

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"golang.org/x/mod/semver"

	"github.com/Keen-VPN/vpn-backend-service/internal/http/response"
)

// appVersionHeader передаётся мобильными и десктопными клиентами.
const appVersionHeader = "X-App-Version"

// VersionGateMiddleware отклоняет клиентов со статусом 426, если версия
// из X-App-Version ниже минимально поддерживаемой. Запросы без заголовка
// пропускаются: его шлют только нативные клиенты.
func VersionGateMiddleware(log *slog.Logger, minVersion string) func(http.Handler) http.Handler {
	minVersion = canonical(minVersion)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(appVersionHeader)
			if raw == "" || minVersion == "" {
				next.ServeHTTP(w, r)
				return
			}

			version := canonical(raw)
			if !semver.IsValid(version) {
				log.Warn("malformed app version", slog.String("version", raw))
				next.ServeHTTP(w, r)
				return
			}
			if semver.Compare(version, minVersion) < 0 {
				log.Info("outdated client rejected",
					slog.String("version", raw),
					slog.String("min_version", minVersion))
				w.WriteHeader(http.StatusUpgradeRequired)
				render.JSON(w, r, response.Error("app version is no longer supported, please update"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// canonical приводит версию к виду, который понимает пакет semver ("v1.2.3").
func canonical(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return ""
	}
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		return ""
	}
	return version
}
