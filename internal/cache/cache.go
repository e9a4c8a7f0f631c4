// Package cache stores finished generation results keyed by content fingerprint.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"thumbsmith/internal/domain"
)

// ResultCache is a best-effort store of pipeline results.
type ResultCache interface {
	Get(ctx context.Context, fingerprint string) (*domain.Result, bool, error)
	Set(ctx context.Context, fingerprint string, res *domain.Result) error
}

// Fingerprint identifies a request by everything that shapes its output.
func Fingerprint(req domain.Request) string {
	h := sha256.New()
	sum := sha256.Sum256(req.Image)
	h.Write(sum[:])
	for _, field := range []string{
		req.Topic,
		req.Style,
		string(req.Placement),
		req.Tone,
		req.ChannelStyle,
		strconv.Itoa(req.Variants),
		strconv.FormatBool(req.PostProcess),
	} {
		h.Write([]byte{0})
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func encode(res *domain.Result) ([]byte, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode cached result: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (*domain.Result, error) {
	var res domain.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode cached result: %w", err)
	}
	res.Cached = true
	return &res, nil
}

// Nop never hits.
type Nop struct{}

func (Nop) Get(context.Context, string) (*domain.Result, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, *domain.Result) error         { return nil }

var _ ResultCache = Nop{}
