// Package cryptoutil implements the Crypto Unit (component B): AES-GCM with
// a fixed zero IV, AES-CBC with PKCS#7 padding and a random IV, and the
// BASE64/MD5 whole-body encoders, plus the per-field body-encryption rule
// walker used by the pipeline's field-level encryption stage.
//
// The AES-GCM fixed zero IV is a deliberate protocol decision dictated by
// the system under test, preserved verbatim for wire compatibility. It must
// never be replaced with crypto/rand.
package cryptoutil

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/apitest-engine/apitestd/varstore"
)

// zeroNonce is the fixed zero-filled nonce used by every AES-GCM call.
// It is 12 bytes, the size crypto/cipher.NewGCM's standard nonce requires.
var zeroNonce = make([]byte, 12)

// PadKey pads key to the next of {16, 24, 32} bytes with zero bytes, or
// truncates it to 32 bytes if it is already longer.
func PadKey(key string) []byte {
	b := []byte(key)
	if len(b) > 32 {
		return b[:32]
	}
	var target int
	switch {
	case len(b) <= 16:
		target = 16
	case len(b) <= 24:
		target = 24
	default:
		target = 32
	}
	out := make([]byte, target)
	copy(out, b)
	return out
}

// AESGCM encrypts plain with key using AES-GCM and the fixed zero nonce,
// returning base64(nonce ‖ ciphertext ‖ tag). Output length is always
// 12 + len(plain) + 16 bytes before base64 encoding.
func AESGCM(plain, key string) (string, error) {
	block, err := aes.NewCipher(PadKey(key))
	if err != nil {
		return "", fmt.Errorf("cryptoutil: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: new gcm: %w", err)
	}
	ct := gcm.Seal(nil, zeroNonce, []byte(plain), nil)
	out := make([]byte, 0, len(zeroNonce)+len(ct))
	out = append(out, zeroNonce...)
	out = append(out, ct...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// AESGCMDecrypt reverses AESGCM.
func AESGCMDecrypt(encoded, key string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: base64 decode: %w", err)
	}
	if len(raw) < 12 {
		return "", fmt.Errorf("cryptoutil: ciphertext too short")
	}
	nonce, ct := raw[:12], raw[12:]
	block, err := aes.NewCipher(PadKey(key))
	if err != nil {
		return "", fmt.Errorf("cryptoutil: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: new gcm: %w", err)
	}
	pt, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: gcm open: %w", err)
	}
	return string(pt), nil
}

// cbcEnvelope is the {iv, data} JSON shape AESCBC produces.
type cbcEnvelope struct {
	IV   string `json:"iv"`
	Data string `json:"data"`
}

// AESCBC encrypts plain with key using AES-CBC, PKCS#7 padding, and a fresh
// random IV, returning json({iv: base64, data: base64}).
func AESCBC(plain, key string) (string, error) {
	block, err := aes.NewCipher(PadKey(key))
	if err != nil {
		return "", fmt.Errorf("cryptoutil: new cipher: %w", err)
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("cryptoutil: read iv: %w", err)
	}
	padded := pkcs7Pad([]byte(plain), aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	env := cbcEnvelope{
		IV:   base64.StdEncoding.EncodeToString(iv),
		Data: base64.StdEncoding.EncodeToString(ct),
	}
	out, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: marshal envelope: %w", err)
	}
	return string(out), nil
}

// AESCBCDecrypt reverses AESCBC.
func AESCBCDecrypt(envelopeJSON, key string) (string, error) {
	var env cbcEnvelope
	if err := json.Unmarshal([]byte(envelopeJSON), &env); err != nil {
		return "", fmt.Errorf("cryptoutil: unmarshal envelope: %w", err)
	}
	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: decode iv: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return "", fmt.Errorf("cryptoutil: decode data: %w", err)
	}
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", fmt.Errorf("cryptoutil: invalid ciphertext length")
	}
	block, err := aes.NewCipher(PadKey(key))
	if err != nil {
		return "", fmt.Errorf("cryptoutil: new cipher: %w", err)
	}
	pt := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(pt, ct)
	pt, err = pkcs7Unpad(pt)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(data, padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cryptoutil: empty padded data")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, fmt.Errorf("cryptoutil: invalid pkcs7 padding")
	}
	return data[:len(data)-padLen], nil
}

// Base64 encodes plain as standard base64, the BASE64 whole-body mode.
func Base64(plain string) string {
	return base64.StdEncoding.EncodeToString([]byte(plain))
}

// MD5 hex-encodes the MD5 digest of plain, the MD5 whole-body mode.
func MD5(plain string) string {
	sum := md5.Sum([]byte(plain))
	return fmt.Sprintf("%x", sum)
}

// BodyEncRule mirrors entity.BodyEncRule without importing entity, to keep
// this package free of the repository's data-model dependency.
type BodyEncRule struct {
	Field     string
	SSrc      string
	JSONDumps bool
	Raw       string
}

// ApplyBodyEncRules implements §4.B's apply_body_enc_rules: for each rule,
// resolve rule.SSrc through substitution, optionally JSON-serialize it, and
// write its AES-GCM encryption into body[rule.Field]. A nil body is treated
// as a fresh empty map. Rules missing Field or SSrc are skipped.
func ApplyBodyEncRules(body map[string]any, rules []BodyEncRule, defaultKey string, vars map[string]string) map[string]any {
	if body == nil {
		body = map[string]any{}
	}
	for _, rule := range rules {
		if rule.Field == "" || rule.SSrc == "" {
			continue
		}
		src := varstore.Substitute(rule.SSrc, vars)
		resolved := resolveSource(src, body, vars, rule.JSONDumps)

		key := rule.Raw
		if key == "" {
			key = defaultKey
		}
		enc, err := AESGCM(resolved, key)
		if err != nil {
			continue
		}
		body[rule.Field] = enc
	}
	return body
}

// resolveSource implements the ssrc-resolution rule: if json_dumps is set
// and src names an entry in vars or body, JSON-serialize that entry's
// value; else if src is itself valid JSON, keep it as-is; else
// JSON-serialize the raw string.
func resolveSource(src string, body map[string]any, vars map[string]string, jsonDumps bool) string {
	if jsonDumps {
		if v, ok := vars[src]; ok {
			if b, err := json.Marshal(v); err == nil {
				return string(b)
			}
		}
		if v, ok := body[src]; ok {
			if b, err := json.Marshal(v); err == nil {
				return string(b)
			}
		}
	}
	var probe any
	if json.Unmarshal([]byte(src), &probe) == nil {
		return src
	}
	if b, err := json.Marshal(src); err == nil {
		return string(b)
	}
	return src
}
