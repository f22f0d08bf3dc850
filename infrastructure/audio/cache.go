package audio

import (
	"context"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/sales-celebration/internal/config"
	"github.com/vfg2006/sales-celebration/internal/domain"
)

// AssetCache guarda os clipes de celebração decodificados, um por vendedor.
// A população acontece só dentro de EnsureLoaded; chamadas concorrentes para
// vendedores diferentes são independentes e, para o mesmo vendedor, a segunda
// chamada aguarda o carregamento já em andamento.
type AssetCache struct {
	cfg config.Audio

	mu      sync.Mutex
	entries map[string]*cacheEntry

	// Pontos de injeção para os testes.
	fetch  func(ctx context.Context, url string) ([]byte, string, error)
	decode func(sourceURL, contentType string, data []byte, targetRate int) (*Clip, error)
}

type cacheEntry struct {
	asset           domain.AudioAsset
	clip            *Clip
	sellerUpdatedAt time.Time
	done            chan struct{} // fechado quando o carregamento termina
}

func NewAssetCache(cfg config.Audio) *AssetCache {
	cache := &AssetCache{
		cfg:     cfg,
		entries: make(map[string]*cacheEntry),
		decode:  decodeClip,
	}

	client := &http.Client{Timeout: cfg.LoadTimeout()}
	cache.fetch = func(ctx context.Context, url string) ([]byte, string, error) {
		return fetchAsset(ctx, client, url)
	}

	return cache
}

// EnsureLoaded garante que o clipe do vendedor foi carregado (ou que a falha
// foi registrada) e retorna a entrada do cache. Nunca retorna erro: falha de
// carregamento vira estado Failed e o chamador usa a duração de fallback.
// Vendedor sem som configurado retorna (nil, nil).
func (c *AssetCache) EnsureLoaded(ctx context.Context, seller *domain.Seller) (*domain.AudioAsset, *Clip) {
	if !seller.HasSound() {
		return nil, nil
	}

	sourceURL := *seller.SoundAssetURL

	c.mu.Lock()
	entry, exists := c.entries[seller.ID]
	if exists && entry.asset.SourceURL == sourceURL && !seller.UpdatedAt.After(entry.sellerUpdatedAt) {
		c.mu.Unlock()
		<-entry.done
		asset := entry.asset
		return &asset, entry.clip
	}

	if exists {
		logrus.WithFields(logrus.Fields{
			"seller_id": seller.ID,
		}).Info("Som do vendedor mudou, invalidando clipe em cache")
	}

	entry = &cacheEntry{
		asset: domain.AudioAsset{
			SellerID:  seller.ID,
			SourceURL: sourceURL,
			State:     domain.LoadStatePending,
		},
		sellerUpdatedAt: seller.UpdatedAt,
		done:            make(chan struct{}),
	}
	c.entries[seller.ID] = entry
	c.mu.Unlock()

	c.load(ctx, entry, seller.Name)

	asset := entry.asset
	return &asset, entry.clip
}

// load baixa e decodifica o clipe com espera limitada; depois do done fechar
// a entrada nunca mais muda (só a invalidação cria uma entrada nova).
func (c *AssetCache) load(ctx context.Context, entry *cacheEntry, sellerName string) {
	defer close(entry.done)

	loadCtx, cancel := context.WithTimeout(ctx, c.cfg.LoadTimeout())
	defer cancel()

	logger := logrus.WithFields(logrus.Fields{
		"seller_id": entry.asset.SellerID,
		"url":       entry.asset.SourceURL,
	})

	data, contentType, err := c.fetch(loadCtx, entry.asset.SourceURL)
	if err != nil {
		logger.WithError(err).Warn("Falha ao baixar som do vendedor")
		entry.asset.State = domain.LoadStateFailed
		entry.asset.LoadedAt = time.Now()
		return
	}

	clip, err := c.decode(entry.asset.SourceURL, contentType, data, c.cfg.SampleRate)
	if err != nil {
		logger.WithError(err).Warn("Falha ao decodificar som do vendedor")
		entry.asset.State = domain.LoadStateFailed
		entry.asset.LoadedAt = time.Now()
		return
	}

	entry.clip = clip
	entry.asset.State = domain.LoadStateReady
	entry.asset.Duration = clip.Duration
	entry.asset.LoadedAt = time.Now()

	logger.WithFields(logrus.Fields{
		"seller_name": sellerName,
		"duration_ms": clip.Duration.Milliseconds(),
	}).Info("Som do vendedor carregado")
}

// PreloadAll dispara EnsureLoaded em paralelo para todos os vendedores com
// som configurado e retorna quando todas as tentativas terminam. Falhas são
// registradas por clipe, nunca propagadas como erro do grupo.
func (c *AssetCache) PreloadAll(ctx context.Context, sellers []*domain.Seller) {
	wg := sync.WaitGroup{}

	for _, seller := range sellers {
		if !seller.HasSound() {
			continue
		}

		wg.Add(1)
		go func(seller *domain.Seller) {
			defer wg.Done()
			c.EnsureLoaded(ctx, seller)
		}(seller)
	}

	wg.Wait()

	ready, failed := 0, 0
	for _, asset := range c.Snapshot() {
		switch asset.State {
		case domain.LoadStateReady:
			ready++
		case domain.LoadStateFailed:
			failed++
		case domain.LoadStatePending:
		}
	}

	logrus.WithFields(logrus.Fields{
		"ready":  ready,
		"failed": failed,
	}).Info("Pré-carregamento dos sons concluído")
}

// Snapshot retorna o estado atual dos clipes para o endpoint de status.
func (c *AssetCache) Snapshot() []domain.AudioAsset {
	c.mu.Lock()
	defer c.mu.Unlock()

	assets := make([]domain.AudioAsset, 0, len(c.entries))
	for _, entry := range c.entries {
		select {
		case <-entry.done:
			assets = append(assets, entry.asset)
		default:
			// Carregamento em andamento: só os campos imutáveis são legíveis.
			assets = append(assets, domain.AudioAsset{
				SellerID:  entry.asset.SellerID,
				SourceURL: entry.asset.SourceURL,
				State:     domain.LoadStatePending,
			})
		}
	}

	sort.Slice(assets, func(i, j int) bool {
		return assets[i].SellerID < assets[j].SellerID
	})

	return assets
}

// Close libera os buffers PCM retidos.
func (c *AssetCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

func fetchAsset(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", errors.Errorf("status inesperado ao baixar %s: %s", url, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	return data, resp.Header.Get("Content-Type"), nil
}
