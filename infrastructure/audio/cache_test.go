package audio

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/sales-celebration/internal/config"
	"github.com/vfg2006/sales-celebration/internal/domain"
)

var testAudioConfig = config.Audio{
	LoadTimeoutSeconds: 1,
	SampleRate:         44100,
}

func testClip(duration time.Duration) *Clip {
	return &Clip{
		PCM:        make([]byte, 64),
		SampleRate: 44100,
		Duration:   duration,
	}
}

func sellerWithSound(id, name, soundURL string, updatedAt time.Time) *domain.Seller {
	return &domain.Seller{
		ID:            id,
		Name:          name,
		SoundAssetURL: &soundURL,
		UpdatedAt:     updatedAt,
	}
}

func newTestCache(fetches *atomic.Int32, fetchErr error) *AssetCache {
	cache := NewAssetCache(testAudioConfig)

	cache.fetch = func(_ context.Context, _ string) ([]byte, string, error) {
		fetches.Add(1)
		if fetchErr != nil {
			return nil, "", fetchErr
		}
		return []byte("mp3-bytes"), "audio/mpeg", nil
	}
	cache.decode = func(_, _ string, _ []byte, _ int) (*Clip, error) {
		return testClip(2 * time.Second), nil
	}

	return cache
}

func TestAssetCache_EnsureLoaded(t *testing.T) {
	updatedAt := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	t.Run("Vendedor sem som retorna nil sem tocar a rede", func(t *testing.T) {
		var fetches atomic.Int32
		cache := newTestCache(&fetches, nil)

		asset, clip := cache.EnsureLoaded(context.Background(), &domain.Seller{ID: "SEL001", Name: "Maria"})

		assert.Nil(t, asset)
		assert.Nil(t, clip)
		assert.Equal(t, int32(0), fetches.Load())
	})

	t.Run("Carregamento acontece no máximo uma vez por vendedor", func(t *testing.T) {
		var fetches atomic.Int32
		cache := newTestCache(&fetches, nil)
		seller := sellerWithSound("SEL001", "Anna", "https://example.com/anna.mp3", updatedAt)

		asset, clip := cache.EnsureLoaded(context.Background(), seller)
		require.NotNil(t, asset)
		require.NotNil(t, clip)
		assert.Equal(t, domain.LoadStateReady, asset.State)
		assert.Equal(t, 2*time.Second, asset.Duration)

		// Segunda chamada devolve o mesmo clipe sem novo download.
		again, againClip := cache.EnsureLoaded(context.Background(), seller)
		assert.Equal(t, domain.LoadStateReady, again.State)
		assert.Same(t, clip, againClip)
		assert.Equal(t, int32(1), fetches.Load())
	})

	t.Run("Chamadas concorrentes compartilham o mesmo carregamento", func(t *testing.T) {
		var fetches atomic.Int32
		started := make(chan struct{})
		release := make(chan struct{})

		cache := NewAssetCache(testAudioConfig)
		cache.fetch = func(ctx context.Context, _ string) ([]byte, string, error) {
			if fetches.Add(1) == 1 {
				close(started)
			}
			select {
			case <-release:
			case <-ctx.Done():
				return nil, "", ctx.Err()
			}
			return []byte("mp3-bytes"), "audio/mpeg", nil
		}
		cache.decode = func(_, _ string, _ []byte, _ int) (*Clip, error) {
			return testClip(time.Second), nil
		}

		seller := sellerWithSound("SEL001", "Anna", "https://example.com/anna.mp3", updatedAt)

		var wg sync.WaitGroup
		results := make([]*domain.AudioAsset, 2)

		wg.Add(1)
		go func() {
			defer wg.Done()
			results[0], _ = cache.EnsureLoaded(context.Background(), seller)
		}()

		<-started

		wg.Add(1)
		go func() {
			defer wg.Done()
			results[1], _ = cache.EnsureLoaded(context.Background(), seller)
		}()

		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), fetches.Load())
		assert.Equal(t, domain.LoadStateReady, results[0].State)
		assert.Equal(t, domain.LoadStateReady, results[1].State)
	})

	t.Run("Falha no download vira estado Failed sem erro", func(t *testing.T) {
		var fetches atomic.Int32
		cache := newTestCache(&fetches, errors.New("rede fora"))
		seller := sellerWithSound("SEL001", "Anna", "https://example.com/anna.mp3", updatedAt)

		asset, clip := cache.EnsureLoaded(context.Background(), seller)

		require.NotNil(t, asset)
		assert.Nil(t, clip)
		assert.Equal(t, domain.LoadStateFailed, asset.State)

		// A falha fica registrada; não há nova tentativa para o mesmo som.
		again, _ := cache.EnsureLoaded(context.Background(), seller)
		assert.Equal(t, domain.LoadStateFailed, again.State)
		assert.Equal(t, int32(1), fetches.Load())
	})

	t.Run("Download que excede o tempo limite vira Failed", func(t *testing.T) {
		cache := NewAssetCache(testAudioConfig)
		cache.fetch = func(ctx context.Context, _ string) ([]byte, string, error) {
			<-ctx.Done()
			return nil, "", ctx.Err()
		}
		seller := sellerWithSound("SEL001", "Anna", "https://example.com/anna.mp3", updatedAt)

		asset, clip := cache.EnsureLoaded(context.Background(), seller)

		require.NotNil(t, asset)
		assert.Nil(t, clip)
		assert.Equal(t, domain.LoadStateFailed, asset.State)
	})

	t.Run("Falha na decodificação vira Failed", func(t *testing.T) {
		var fetches atomic.Int32
		cache := newTestCache(&fetches, nil)
		cache.decode = func(_, _ string, _ []byte, _ int) (*Clip, error) {
			return nil, errors.New("formato não suportado")
		}
		seller := sellerWithSound("SEL001", "Anna", "https://example.com/anna.mp3", updatedAt)

		asset, clip := cache.EnsureLoaded(context.Background(), seller)

		assert.Nil(t, clip)
		assert.Equal(t, domain.LoadStateFailed, asset.State)
	})

	t.Run("Mudança de som invalida o clipe em cache", func(t *testing.T) {
		var fetches atomic.Int32
		cache := newTestCache(&fetches, nil)

		before := sellerWithSound("SEL001", "Anna", "https://example.com/anna.mp3", updatedAt)
		asset, _ := cache.EnsureLoaded(context.Background(), before)
		assert.Equal(t, "https://example.com/anna.mp3", asset.SourceURL)

		after := sellerWithSound("SEL001", "Anna", "https://example.com/anna-v2.mp3", updatedAt.Add(time.Hour))
		reloaded, _ := cache.EnsureLoaded(context.Background(), after)

		assert.Equal(t, "https://example.com/anna-v2.mp3", reloaded.SourceURL)
		assert.Equal(t, domain.LoadStateReady, reloaded.State)
		assert.Equal(t, int32(2), fetches.Load())
	})
}

func TestAssetCache_PreloadAll(t *testing.T) {
	var fetches atomic.Int32
	cache := newTestCache(&fetches, nil)
	cache.fetch = func(_ context.Context, url string) ([]byte, string, error) {
		fetches.Add(1)
		if url == "https://example.com/broken.mp3" {
			return nil, "", errors.New("rede fora")
		}
		return []byte("mp3-bytes"), "audio/mpeg", nil
	}

	updatedAt := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	sellers := []*domain.Seller{
		sellerWithSound("SEL001", "Anna", "https://example.com/anna.mp3", updatedAt),
		sellerWithSound("SEL002", "Johan", "https://example.com/broken.mp3", updatedAt),
		{ID: "SEL003", Name: "Maria"}, // sem som
	}

	cache.PreloadAll(context.Background(), sellers)

	snapshot := cache.Snapshot()
	require.Len(t, snapshot, 2)

	// Snapshot ordenado por seller_id.
	assert.Equal(t, "SEL001", snapshot[0].SellerID)
	assert.Equal(t, domain.LoadStateReady, snapshot[0].State)
	assert.Equal(t, "SEL002", snapshot[1].SellerID)
	assert.Equal(t, domain.LoadStateFailed, snapshot[1].State)

	assert.Equal(t, int32(2), fetches.Load())
}
