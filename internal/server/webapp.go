package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidInitData = errors.New("invalid web app init data")
	ErrExpiredInitData = errors.New("web app init data expired")
)

// WebAppUser is the Telegram user a web app session belongs to. In a private
// chat the user id is also the chat id.
type WebAppUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

// VerifyInitData checks the hash Telegram attaches to web app launch data
// and returns the user it names.
func VerifyInitData(initData, botToken string, maxAge time.Duration, now time.Time) (WebAppUser, error) {
	if initData == "" || botToken == "" {
		return WebAppUser{}, ErrInvalidInitData
	}
	values, err := url.ParseQuery(initData)
	if err != nil {
		return WebAppUser{}, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return WebAppUser{}, ErrInvalidInitData
	}
	got, err := hex.DecodeString(hash)
	if err != nil {
		return WebAppUser{}, ErrInvalidInitData
	}
	if !hmac.Equal(got, initDataHash(values, botToken)) {
		return WebAppUser{}, ErrInvalidInitData
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return WebAppUser{}, ErrInvalidInitData
		}
		if now.Sub(time.Unix(authDate, 0)) > maxAge {
			return WebAppUser{}, ErrExpiredInitData
		}
	}

	var user WebAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return WebAppUser{}, ErrInvalidInitData
	}
	return user, nil
}

// initDataHash signs the sorted key=value lines, hash excluded, with a key
// derived from the bot token.
func initDataHash(values url.Values, botToken string) []byte {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+values.Get(k))
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return mac.Sum(nil)
}
