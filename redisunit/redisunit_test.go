package redisunit

import (
	"context"
	"testing"
	"time"

	"strconv"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"

	"github.com/apitest-engine/apitestd/varstore"
)

func newTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestGetStringValue(t *testing.T) {
	client, mr := newTestClient(t)
	require.NoError(t, mr.Set("k", "v"))

	res, err := Get(context.Background(), client, "k")
	require.NoError(t, err)
	require.Equal(t, "v", res.Value)
	require.Equal(t, "string", res.Type)
}

func TestGetMissingKeyReturnsError(t *testing.T) {
	client, _ := newTestClient(t)
	_, err := Get(context.Background(), client, "missing")
	require.Error(t, err)
}

func TestGetHashEncodesAsJSON(t *testing.T) {
	client, mr := newTestClient(t)
	mr.HSet("h", "field", "value")

	res, err := Get(context.Background(), client, "h")
	require.NoError(t, err)
	require.Equal(t, "hash", res.Type)
	require.JSONEq(t, `{"field":"value"}`, res.Value)
}

func TestSetAndDelete(t *testing.T) {
	client, _ := newTestClient(t)
	require.NoError(t, Set(context.Background(), client, "x", "1", 0))

	res, err := Get(context.Background(), client, "x")
	require.NoError(t, err)
	require.Equal(t, "1", res.Value)

	require.NoError(t, Delete(context.Background(), client, "x"))
	_, err = Get(context.Background(), client, "x")
	require.Error(t, err)
}

func TestScanCapsAtMaxScanKeys(t *testing.T) {
	client, mr := newTestClient(t)
	for i := 0; i < MaxScanKeys+20; i++ {
		require.NoError(t, mr.Set(keyFor(i), "v"))
	}

	keys, err := Scan(context.Background(), client, "scankey:*")
	require.NoError(t, err)
	require.LessOrEqual(t, len(keys), MaxScanKeys)
}

func keyFor(i int) string {
	return "scankey:" + strconv.Itoa(i)
}

func TestExpireAndTTL(t *testing.T) {
	client, _ := newTestClient(t)
	require.NoError(t, Set(context.Background(), client, "x", "1", 0))
	require.NoError(t, Expire(context.Background(), client, "x", 30*time.Second))

	ttl, err := TTL(context.Background(), client, "x")
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
}

func TestFetchCaptchaToGlobalExtractsJSONField(t *testing.T) {
	client, mr := newTestClient(t)
	require.NoError(t, mr.Set("captcha:sess1", `{"code":"ABCD"}`))

	store := varstore.New()
	var savedName, savedValue string
	setGlobal := func(name, value string) error {
		savedName, savedValue = name, value
		return nil
	}

	err := FetchCaptchaToGlobal(context.Background(), client, "captcha:{{session}}", "captcha_code", "code",
		map[string]string{"session": "sess1"}, store, setGlobal)
	require.NoError(t, err)
	require.Equal(t, "captcha_code", savedName)
	require.Equal(t, "ABCD", savedValue)

	snap := store.Snapshot()
	require.Equal(t, "ABCD", snap["captcha_code"])
}

func TestFetchCaptchaToGlobalMissingKeyLeavesVarUnset(t *testing.T) {
	client, _ := newTestClient(t)
	store := varstore.New()

	err := FetchCaptchaToGlobal(context.Background(), client, "captcha:{{session}}", "captcha_code", "code",
		map[string]string{"session": "missing"}, store, nil)
	require.Error(t, err)

	_, ok := store.Snapshot()["captcha_code"]
	require.False(t, ok)
}

func TestFetchCaptchaToGlobalRawValueWhenNoExtractField(t *testing.T) {
	client, mr := newTestClient(t)
	require.NoError(t, mr.Set("raw:sess1", "plain-value"))

	store := varstore.New()
	err := FetchCaptchaToGlobal(context.Background(), client, "raw:{{session}}", "raw_var", "",
		map[string]string{"session": "sess1"}, store, nil)
	require.NoError(t, err)

	snap := store.Snapshot()
	require.Equal(t, "plain-value", snap["raw_var"])
}
