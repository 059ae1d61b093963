package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
)

// cardTextAnalyzer splits on unicode word boundaries and lower-cases, with no
// stemming or stop words: card titles are short and mix languages.
const cardTextAnalyzer = "card_text"

// buildIndexMapping creates the Bleve index mapping for card documents.
func buildIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()

	if err := indexMapping.AddCustomAnalyzer(cardTextAnalyzer, map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, err
	}
	indexMapping.DefaultAnalyzer = cardTextAnalyzer

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields ---

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = cardTextAnalyzer
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = cardTextAnalyzer
	descFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	labelsFieldMapping := bleve.NewTextFieldMapping()
	labelsFieldMapping.Analyzer = cardTextAnalyzer
	docMapping.AddFieldMappingsAt("labels", labelsFieldMapping)

	// --- Keyword fields (exact match) ---

	for _, field := range []string{"id", "board_id", "list_id", "label_ids"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = field == "list_id"
		docMapping.AddFieldMappingsAt(field, fm)
	}

	updatedAtFieldMapping := bleve.NewNumericFieldMapping()
	docMapping.AddFieldMappingsAt("updated_at", updatedAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping, nil
}
