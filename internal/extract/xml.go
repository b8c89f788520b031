// Package extract implements the extraction adapters that turn raw fiscal
// documents into canonical payload candidates.
package extract

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"github.com/notaflow/notaflow/internal/common"
	"github.com/notaflow/notaflow/internal/model"
)

// XMLExtractor is the structural adapter: direct field mapping from the
// NF-e XML tree. It fails fast when the document structure is unusable and
// leaves leaf-field problems (a missing UF, a missing CFOP) to the
// validator, which reports them by name.
type XMLExtractor struct{}

// NewXMLExtractor creates the structural XML adapter.
func NewXMLExtractor() *XMLExtractor {
	return &XMLExtractor{}
}

// xmlnsRegex strips namespace attributes for the second parsing attempt;
// some emitters produce prefixed namespaces that defeat plain decoding.
var xmlnsRegex = regexp.MustCompile(`\s+xmlns(:\w+)?="[^"]+"`)

// nfeEnvelope accepts both common roots: nfeProc/NFe/infNFe and NFe/infNFe.
type nfeEnvelope struct {
	NFe    nfeNode     `xml:"NFe"`
	InfNFe *infNFeNode `xml:"infNFe"`
}

type nfeNode struct {
	InfNFe *infNFeNode `xml:"infNFe"`
}

type infNFeNode struct {
	Emit struct {
		Ender struct {
			UF string `xml:"UF"`
		} `xml:"enderEmit"`
	} `xml:"emit"`
	Dest struct {
		Ender struct {
			UF string `xml:"UF"`
		} `xml:"enderDest"`
	} `xml:"dest"`
	Det []struct {
		Prod prodNode `xml:"prod"`
	} `xml:"det"`
	Total struct {
		ICMSTot *struct {
			VNF string `xml:"vNF"`
		} `xml:"ICMSTot"`
	} `xml:"total"`
}

type prodNode struct {
	XProd string `xml:"xProd"`
	NCM   string `xml:"NCM"`
	CFOP  string `xml:"CFOP"`
	VProd string `xml:"vProd"`
}

// Extract reads an NF-e XML file and maps it onto a payload candidate.
func (e *XMLExtractor) Extract(_ context.Context, path string) (*model.PayloadCandidate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewExtractionError(path, fmt.Errorf("failed to read XML file: %w", err))
	}

	inf, err := locateInfNFe(raw)
	if err != nil {
		return nil, common.NewExtractionError(path, err)
	}

	candidate := &model.PayloadCandidate{
		EmitterUF:     inf.Emit.Ender.UF,
		DestinationUF: inf.Dest.Ender.UF,
	}

	if inf.Total.ICMSTot == nil {
		return nil, common.NewExtractionError(path, errors.New("required node total.ICMSTot is missing"))
	}
	total, err := ParseDecimal(inf.Total.ICMSTot.VNF)
	if err != nil {
		return nil, common.NewExtractionError(path, fmt.Errorf("total.ICMSTot.vNF is not a number: %w", err))
	}
	candidate.TotalValue = total

	// The document-level operation code comes from the first product line.
	if len(inf.Det) > 0 {
		candidate.CFOP = inf.Det[0].Prod.CFOP
	}

	for i, det := range inf.Det {
		value := 0.0
		if det.Prod.VProd != "" {
			value, err = ParseDecimal(det.Prod.VProd)
			if err != nil {
				return nil, common.NewExtractionError(path, fmt.Errorf("det[%d].prod.vProd is not a number: %w", i, err))
			}
		}
		desc := det.Prod.XProd
		if desc == "" {
			desc = "Item"
		}
		candidate.Items = append(candidate.Items, model.LineItemCandidate{
			Description: desc,
			NCM:         SanitizeNCM(det.Prod.NCM),
			Value:       value,
		})
	}

	slog.Debug("XML extraction complete",
		"path", path,
		"cfop", candidate.CFOP,
		"items", len(candidate.Items))

	return candidate, nil
}

// locateInfNFe decodes the document, retrying once with namespace
// attributes stripped before giving up.
func locateInfNFe(raw []byte) (*infNFeNode, error) {
	if inf := decodeInfNFe(raw); inf != nil {
		return inf, nil
	}
	if inf := decodeInfNFe(xmlnsRegex.ReplaceAll(raw, nil)); inf != nil {
		return inf, nil
	}
	return nil, errors.New("invalid XML structure: could not locate infNFe")
}

func decodeInfNFe(raw []byte) *infNFeNode {
	var env nfeEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil
	}
	if env.NFe.InfNFe != nil {
		return env.NFe.InfNFe
	}
	return env.InfNFe
}
