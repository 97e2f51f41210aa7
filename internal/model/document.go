package model

import "strings"

// Section is one layout-segmented span of a document.
type Section struct {
	Heading string `json:"heading,omitempty"`
	Body    string `json:"body"`
}

// DocumentText is the extracted content of a single PDF. Produced once per
// document by a TextProvider and read-only afterward.
type DocumentText struct {
	SourceID string    `json:"source_id"`
	FullText string    `json:"full_text"`
	Sections []Section `json:"sections,omitempty"`
	Tables   []string  `json:"tables,omitempty"`
}

// SectionChunks returns the section bodies in document order, used as the
// unit of retrieval. When the provider produced no section segmentation the
// full text is returned as a single chunk.
func (d *DocumentText) SectionChunks() []string {
	if len(d.Sections) == 0 {
		if d.FullText == "" {
			return nil
		}
		return []string{d.FullText}
	}
	chunks := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		text := s.Body
		if s.Heading != "" {
			text = s.Heading + "\n" + text
		}
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, text)
		}
	}
	return chunks
}

// JoinFullText assembles the canonical full text from line text and
// serialized tables: line text, then a "Tables:" block with tables separated
// by blank lines.
func JoinFullText(lineText string, tables []string) string {
	if len(tables) == 0 {
		return lineText
	}
	return lineText + "\n\n\nTables:\n" + strings.Join(tables, "\n\n\n")
}
