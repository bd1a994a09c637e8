package cache

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/mohammed-shakir/favplaces/internal/cache/keys"
	"github.com/mohammed-shakir/favplaces/internal/core/model"
)

// Pages is the typed view over a Store: pages under (fingerprint, page) and
// continuation tokens under (fingerprint-token, page).
type Pages struct {
	store Store
}

func NewPages(s Store) *Pages {
	return &Pages{store: s}
}

func (p *Pages) GetPage(ctx context.Context, fingerprint string, page int) (model.CachedPage, bool, error) {
	raw, found, err := p.store.Get(ctx, fingerprint, keys.PageField(page))
	if err != nil {
		return model.CachedPage{}, false, fmt.Errorf("get page %d: %w", page, err)
	}
	if !found || len(raw) == 0 {
		return model.CachedPage{}, false, nil
	}
	var cp model.CachedPage
	if err := json.Unmarshal(raw, &cp); err != nil {
		return model.CachedPage{}, false, fmt.Errorf("decode page %d: %w", page, err)
	}
	return cp, true, nil
}

func (p *Pages) SetPage(ctx context.Context, fingerprint string, page int, cp model.CachedPage) error {
	if cp.Places == nil {
		cp.Places = []model.Place{}
	}
	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode page %d: %w", page, err)
	}
	if err := p.store.Set(ctx, fingerprint, keys.PageField(page), raw); err != nil {
		return fmt.Errorf("set page %d: %w", page, err)
	}
	return nil
}

func (p *Pages) GetToken(ctx context.Context, fingerprint string, page int) (string, bool, error) {
	raw, found, err := p.store.Get(ctx, keys.TokenKey(fingerprint), keys.PageField(page))
	if err != nil {
		return "", false, fmt.Errorf("get token %d: %w", page, err)
	}
	if !found || len(raw) == 0 {
		return "", false, nil
	}
	return string(raw), true, nil
}

func (p *Pages) SetToken(ctx context.Context, fingerprint string, page int, token string) error {
	if err := p.store.Set(ctx, keys.TokenKey(fingerprint), keys.PageField(page), []byte(token)); err != nil {
		return fmt.Errorf("set token %d: %w", page, err)
	}
	return nil
}
