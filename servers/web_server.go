package servers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"reiatsu/config"
	"reiatsu/handlers/web"
	"reiatsu/interfaces"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"
)

// WebServer は管理用のHTTP APIを提供します。
type WebServer struct {
	log  interfaces.Logger
	http *http.Server
}

// NewWebServer は新しいWebServerインスタンスを作成します。
func NewWebServer(log interfaces.Logger, cfg *config.Config, db interfaces.DataStore, sp web.SpawnResetter) *WebServer {
	cookies := sessions.NewCookieStore([]byte(cfg.Web.SessionSecret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.Web.ClientID,
		ClientSecret: cfg.Web.ClientSecret,
		RedirectURL:  cfg.Web.RedirectURI,
		Scopes:       []string{"identify"},
		Endpoint:     web.DiscordEndpoint,
	}

	return &WebServer{
		log: log,
		http: &http.Server{
			Addr:              cfg.Web.Addr,
			Handler:           NewRouter(log, db, sp, web.NewAuthHandler(log, oauthCfg, cookies, nil), cfg.Web.AdminIDs),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// NewRouter はルーティングを設定します。
func NewRouter(log interfaces.Logger, db interfaces.DataStore, sp web.SpawnResetter, auth *web.AuthHandler, adminIDs []string) *mux.Router {
	r := mux.NewRouter()
	spawnHandler := web.NewSpawnHandler(log, db, sp)

	r.HandleFunc("/healthz", spawnHandler.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/login", auth.Login).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/callback", auth.Callback).Methods(http.MethodGet)

	guilds := r.PathPrefix("/api/guilds/{guildID}").Subrouter()
	guilds.Use(auth.RequireAdmin(adminIDs))
	guilds.HandleFunc("/spawn", spawnHandler.Get).Methods(http.MethodGet)
	guilds.HandleFunc("/spawn/reset", spawnHandler.Reset).Methods(http.MethodPost)
	return r
}

// Run はWebサーバーを起動し、ctx がキャンセルされるとシャットダウンします。
func (s *WebServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Webサーバーを起動します", "addr", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.Stop()
		return nil
	}
}

// Stop はWebサーバーをシャットダウンします。
func (s *WebServer) Stop() {
	s.log.Info("Webサーバーをシャットダウンします...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.log.Error("Webサーバーのシャットダウンに失敗しました", "error", err)
	}
}
