package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"reiatsu/interfaces"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"
)

const (
	SessionName = "reiatsu_admin" // Cookie名
	keyState    = "oauth_state"
	keyUserID   = "user_id"
)

// DiscordEndpoint は Discord の OAuth2 エンドポイントです。
var DiscordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// UserFetcher resolves the Discord user behind an OAuth2 token.
type UserFetcher func(ctx context.Context, token *oauth2.Token) (*discordgo.User, error)

// FetchDiscordUser calls /users/@me with a bearer session.
func FetchDiscordUser(ctx context.Context, token *oauth2.Token) (*discordgo.User, error) {
	dg, err := discordgo.New("Bearer " + token.AccessToken)
	if err != nil {
		return nil, err
	}
	return dg.User("@me", discordgo.WithContext(ctx))
}

type AuthHandler struct {
	log       interfaces.Logger
	oauth     *oauth2.Config
	sessions  sessions.Store
	fetchUser UserFetcher
}

func NewAuthHandler(log interfaces.Logger, oauth *oauth2.Config, store sessions.Store, fetchUser UserFetcher) *AuthHandler {
	if fetchUser == nil {
		fetchUser = FetchDiscordUser
	}
	return &AuthHandler{log: log, oauth: oauth, sessions: store, fetchUser: fetchUser}
}

// Login はDiscord OAuth2のログインフローを開始します。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.sessions.Get(r, SessionName)

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		h.log.Error("stateの生成に失敗", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	state := hex.EncodeToString(buf)
	sess.Values[keyState] = state
	if err := sess.Save(r, w); err != nil {
		h.log.Error("セッションの保存に失敗", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusFound)
}

// Callback はDiscordからの認証コールバックを処理し、ユーザーIDをセッションに保存します。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.sessions.Get(r, SessionName)

	want, _ := sess.Values[keyState].(string)
	if want == "" || r.URL.Query().Get("state") != want {
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return
	}
	delete(sess.Values, keyState)

	token, err := h.oauth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.log.Warn("OAuth2トークンの取得に失敗", "error", err)
		http.Error(w, "oauth exchange failed", http.StatusUnauthorized)
		return
	}
	user, err := h.fetchUser(r.Context(), token)
	if err != nil {
		h.log.Warn("Discordユーザーの取得に失敗", "error", err)
		http.Error(w, "failed to fetch user", http.StatusBadGateway)
		return
	}

	sess.Values[keyUserID] = user.ID
	if err := sess.Save(r, w); err != nil {
		h.log.Error("セッションの保存に失敗", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.log.Info("管理画面にログインしました", "userID", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"user_id": user.ID, "username": user.Username})
}

// RequireAdmin は admin_ids に含まれるユーザーのセッションだけを通します。
func (h *AuthHandler) RequireAdmin(adminIDs []string) mux.MiddlewareFunc {
	allowed := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		allowed[id] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, _ := h.sessions.Get(r, SessionName)
			userID, _ := sess.Values[keyUserID].(string)
			switch {
			case userID == "":
				http.Error(w, "login required", http.StatusUnauthorized)
			case !allowed[userID]:
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
