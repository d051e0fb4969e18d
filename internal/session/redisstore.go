// Package session はサーバー側でセッションを保持する gin-contrib/sessions 用のストアを提供します。
//
// Cookie には署名済みのセッションIDだけを載せ、値は Redis に保存します。
// ログアウトでレコードを消せば、古い Cookie を再送しても未認証として扱われます。
package session

import (
	"bytes"
	"context"
	"encoding/base32"
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	ginsessions "github.com/gin-contrib/sessions"
	"github.com/gorilla/securecookie"
	gsessions "github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "session:"

// 制御用のセッション値のキーです。Redis には保存されません。
const (
	// KeyLoadFailed は Redis からの読み込みに失敗したセッションに付きます。
	KeyLoadFailed = "_session.load_failed"
	// KeyRegenerate を設定して保存すると、新しいIDで保存し直して古いレコードを削除します。
	KeyRegenerate = "_session.regenerate"
)

// ErrUnavailable は読み込みに失敗したセッションを上書き保存しようとしたときに返ります。
var ErrUnavailable = errors.New("session: store unavailable when the session was loaded")

// RedisStore は Redis にセッション値を保存するストアです。
type RedisStore struct {
	rdb       *redis.Client
	codecs    []securecookie.Codec
	options   *gsessions.Options
	keyPrefix string
}

// NewRedisStore は RedisStore を作成します。secret は Cookie 署名に使います。
func NewRedisStore(rdb *redis.Client, secret []byte, opts ginsessions.Options) *RedisStore {
	s := &RedisStore{
		rdb:       rdb,
		codecs:    securecookie.CodecsFromPairs(secret),
		keyPrefix: defaultKeyPrefix,
	}
	s.Options(opts)
	return s
}

// Options はデフォルトの Cookie 属性を設定します。
func (s *RedisStore) Options(opts ginsessions.Options) {
	s.options = opts.ToGorillaOptions()
	if s.options.Path == "" {
		s.options.Path = "/"
	}
	for _, c := range s.codecs {
		if codec, ok := c.(*securecookie.SecureCookie); ok && s.options.MaxAge > 0 {
			codec.MaxAge(s.options.MaxAge)
		}
	}
}

// Get はリクエスト内でキャッシュされたセッションを返します。
func (s *RedisStore) Get(r *http.Request, name string) (*gsessions.Session, error) {
	return gsessions.GetRegistry(r).Get(s, name)
}

// New は Cookie からセッションを復元します。
// Cookie が無い・署名が不正・レコードが期限切れの場合は新しい空のセッションを返します。
// Redis から読めなかった場合は KeyLoadFailed 付きの空のセッションを返し、Save はそれを上書きしません。
func (s *RedisStore) New(r *http.Request, name string) (*gsessions.Session, error) {
	session := gsessions.NewSession(s, name)
	opts := *s.options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.codecs...); err != nil {
		return session, nil
	}

	found, err := s.load(r.Context(), id, session)
	if err != nil {
		// 既存のレコードを新しいIDで上書きしないよう、元のIDのまま印を付けて返す
		session.ID = id
		session.IsNew = false
		session.Values[KeyLoadFailed] = true
		return session, err
	}
	if found {
		session.ID = id
		session.IsNew = false
	}
	return session, nil
}

// Save はセッションを Redis に保存し Cookie を発行します。
// MaxAge が 0 以下ならレコードを削除して Cookie を失効させます。
func (s *RedisStore) Save(r *http.Request, w http.ResponseWriter, session *gsessions.Session) error {
	if session.Options.MaxAge <= 0 {
		if session.ID != "" {
			if err := s.rdb.Del(r.Context(), s.key(session.ID)).Err(); err != nil {
				return fmt.Errorf("session: delete: %w", err)
			}
		}
		http.SetCookie(w, gsessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if _, ok := session.Values[KeyRegenerate]; ok {
		delete(session.Values, KeyRegenerate)
		delete(session.Values, KeyLoadFailed)
		if session.ID != "" {
			if err := s.rdb.Del(r.Context(), s.key(session.ID)).Err(); err != nil {
				return fmt.Errorf("session: delete before regenerate: %w", err)
			}
			session.ID = ""
		}
	} else if _, ok := session.Values[KeyLoadFailed]; ok {
		return ErrUnavailable
	}

	if session.ID == "" {
		session.ID = strings.TrimRight(
			base32.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)), "=")
	}
	if err := s.save(r.Context(), session); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("session: encode cookie: %w", err)
	}
	http.SetCookie(w, gsessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

func (s *RedisStore) save(ctx context.Context, session *gsessions.Session) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(session.Values); err != nil {
		return fmt.Errorf("session: encode values: %w", err)
	}
	ttl := time.Duration(session.Options.MaxAge) * time.Second
	if err := s.rdb.Set(ctx, s.key(session.ID), buf.Bytes(), ttl).Err(); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

func (s *RedisStore) load(ctx context.Context, id string, session *gsessions.Session) (bool, error) {
	data, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("session: load: %w", err)
	}
	values := make(map[interface{}]interface{})
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&values); err != nil {
		// 壊れたレコードは無かったものとして扱う
		return false, nil
	}
	session.Values = values
	return true, nil
}

func (s *RedisStore) key(id string) string {
	return s.keyPrefix + id
}

var _ ginsessions.Store = (*RedisStore)(nil)
