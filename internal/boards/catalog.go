package boards

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed schema/board-v1.json
var boardSchemaJSON string

// Catalog holds every board descriptor found under the configured
// vendor directories. Built once at startup, read-only afterwards.
type Catalog struct {
	logger *zap.Logger
	schema *jsonschema.Schema
	boards map[string]Board
}

// LoadCatalog scans each search path for vendor directories. A vendor
// directory carries an index.yaml naming its descriptor files. Broken
// descriptors are skipped with a warning so one bad file cannot take
// the whole catalog down.
func LoadCatalog(searchPaths []string, logger *zap.Logger) (*Catalog, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("board-v1.json", strings.NewReader(boardSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := compiler.Compile("board-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	c := &Catalog{
		logger: logger,
		schema: schema,
		boards: make(map[string]Board),
	}

	for _, searchPath := range searchPaths {
		entries, err := os.ReadDir(searchPath)
		if err != nil {
			logger.Debug("Board search path not readable", zap.String("path", searchPath), zap.Error(err))
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			c.loadVendor(filepath.Join(searchPath, entry.Name()))
		}
	}

	logger.Info("Board catalog loaded", zap.Int("boards", len(c.boards)))
	return c, nil
}

func (c *Catalog) loadVendor(dir string) {
	indexPath := filepath.Join(dir, "index.yaml")
	data, err := os.ReadFile(indexPath)
	if err != nil {
		c.logger.Debug("Vendor index missing", zap.String("path", indexPath))
		return
	}

	var index vendorIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		c.logger.Warn("Unparseable vendor index", zap.String("path", indexPath), zap.Error(err))
		return
	}

	for _, ref := range index.Boards {
		boardPath := filepath.Join(dir, ref.File)
		board, err := c.loadBoard(boardPath)
		if err != nil {
			c.logger.Warn("Skipping board descriptor",
				zap.String("path", boardPath),
				zap.Error(err))
			continue
		}
		if board.Vendor == "" {
			board.Vendor = index.Vendor
		}
		if _, exists := c.boards[board.ID]; exists {
			c.logger.Warn("Duplicate board id, keeping first", zap.String("id", board.ID))
			continue
		}
		c.boards[board.ID] = board
	}
}

func (c *Catalog) loadBoard(path string) (Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Board{}, fmt.Errorf("failed to read descriptor: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Board{}, fmt.Errorf("invalid JSON: %w", err)
	}
	if err := c.schema.Validate(doc); err != nil {
		return Board{}, fmt.Errorf("schema validation failed: %w", err)
	}

	var board Board
	if err := json.Unmarshal(data, &board); err != nil {
		return Board{}, fmt.Errorf("failed to unmarshal descriptor: %w", err)
	}
	return board, nil
}

// List returns all boards as summaries, sorted by vendor then id.
func (c *Catalog) List() []Summary {
	summaries := make([]Summary, 0, len(c.boards))
	for _, board := range c.boards {
		summaries = append(summaries, Summary{
			ID:     board.ID,
			Vendor: board.Vendor,
			Name:   board.Name,
			MCU:    board.MCU,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Vendor != summaries[j].Vendor {
			return summaries[i].Vendor < summaries[j].Vendor
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}

// Get returns one board by id.
func (c *Catalog) Get(id string) (Board, bool) {
	board, ok := c.boards[id]
	return board, ok
}

// ByVendor returns one vendor's boards, sorted by id.
func (c *Catalog) ByVendor(vendor string) []Summary {
	summaries := make([]Summary, 0)
	for _, board := range c.boards {
		if board.Vendor != vendor {
			continue
		}
		summaries = append(summaries, Summary{
			ID:     board.ID,
			Vendor: board.Vendor,
			Name:   board.Name,
			MCU:    board.MCU,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries
}

// Find returns the board with the given vendor and id.
func (c *Catalog) Find(vendor, id string) (Board, bool) {
	board, ok := c.boards[id]
	if !ok || board.Vendor != vendor {
		return Board{}, false
	}
	return board, true
}

// Count returns how many boards the catalog knows.
func (c *Catalog) Count() int {
	return len(c.boards)
}
