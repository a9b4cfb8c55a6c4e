package graph

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/graphrag-chat/backend/internal/util"
	"github.com/graphrag-chat/backend/pkg/logger"
)

// Clear removes source and every entity its documents mention. An empty
// source wipes the whole graph. Paths are reduced to their base name, the
// identifier used at ingestion.
func (g *GraphClient) Clear(ctx context.Context, source string) error {
	source = strings.TrimSpace(source)
	if source == "" {
		err := util.WithTimeoutErr(ctx, g.storeTimeout, g.store.DeleteAll)
		if err != nil {
			return fmt.Errorf("failed to clear graph: %w", err)
		}
		logger.Info("[Graph] Cleared graph")
		return nil
	}

	source = filepath.Base(source)
	err := util.WithTimeoutErr(ctx, g.storeTimeout, func(ctx context.Context) error {
		return g.store.DeleteDocument(ctx, source)
	})
	if err != nil {
		return fmt.Errorf("failed to clear %s from graph: %w", source, err)
	}
	logger.Info("[Graph] Cleared source", "source", source)
	return nil
}

// EnsureIndex creates the entity full-text index. It is safe to call on
// every start.
func (g *GraphClient) EnsureIndex(ctx context.Context) error {
	if err := util.WithTimeoutErr(ctx, g.storeTimeout, g.store.EnsureFullTextIndex); err != nil {
		return fmt.Errorf("failed to ensure full-text index: %w", err)
	}
	return nil
}
