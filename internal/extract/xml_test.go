package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notaflow/notaflow/internal/common"
)

const sampleNFe = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
  <NFe>
    <infNFe Id="NFe35200114200166000187550010000000046550010846" versao="4.00">
      <emit>
        <xNome>ACME LTDA</xNome>
        <enderEmit>
          <UF>SP</UF>
        </enderEmit>
      </emit>
      <dest>
        <xNome>CLIENTE SA</xNome>
        <enderDest>
          <UF>RJ</UF>
        </enderDest>
      </dest>
      <det nItem="1">
        <prod>
          <xProd>Notebook</xProd>
          <NCM>84713012</NCM>
          <CFOP>6102</CFOP>
          <vProd>1200.00</vProd>
        </prod>
      </det>
      <det nItem="2">
        <prod>
          <xProd>Mouse</xProd>
          <NCM>847</NCM>
          <CFOP>6102</CFOP>
          <vProd>300,00</vProd>
        </prod>
      </det>
      <total>
        <ICMSTot>
          <vNF>1500.00</vNF>
        </ICMSTot>
      </total>
    </infNFe>
  </NFe>
</nfeProc>`

func writeTestXML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nota.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestXMLExtract(t *testing.T) {
	extractor := NewXMLExtractor()
	candidate, err := extractor.Extract(context.Background(), writeTestXML(t, sampleNFe))
	require.NoError(t, err)

	assert.Equal(t, "6102", candidate.CFOP)
	assert.Equal(t, "SP", candidate.EmitterUF)
	assert.Equal(t, "RJ", candidate.DestinationUF)
	assert.Equal(t, 1500.00, candidate.TotalValue)

	require.Len(t, candidate.Items, 2)
	assert.Equal(t, "Notebook", candidate.Items[0].Description)
	assert.Equal(t, "84713012", candidate.Items[0].NCM)
	assert.Equal(t, 1200.00, candidate.Items[0].Value)
	// pt-BR decimal and malformed NCM on the second line
	assert.Equal(t, 300.00, candidate.Items[1].Value)
	assert.Empty(t, candidate.Items[1].NCM)
}

func TestXMLExtractBareNFeRoot(t *testing.T) {
	bare := `<NFe xmlns="http://www.portalfiscal.inf.br/nfe">
  <infNFe>
    <emit><enderEmit><UF>MG</UF></enderEmit></emit>
    <dest><enderDest><UF>MG</UF></enderDest></dest>
    <det><prod><xProd>Peça</xProd><CFOP>5102</CFOP><vProd>10.00</vProd></prod></det>
    <total><ICMSTot><vNF>10.00</vNF></ICMSTot></total>
  </infNFe>
</NFe>`

	extractor := NewXMLExtractor()
	candidate, err := extractor.Extract(context.Background(), writeTestXML(t, bare))
	require.NoError(t, err)
	assert.Equal(t, "5102", candidate.CFOP)
	assert.Equal(t, "MG", candidate.EmitterUF)
}

func TestXMLExtractMissingLeafFieldsLeftToValidator(t *testing.T) {
	// No dest UF and no CFOP: extraction succeeds with empty fields; the
	// validator reports them by name.
	partial := `<NFe>
  <infNFe>
    <emit><enderEmit><UF>SP</UF></enderEmit></emit>
    <dest></dest>
    <total><ICMSTot><vNF>50.00</vNF></ICMSTot></total>
  </infNFe>
</NFe>`

	extractor := NewXMLExtractor()
	candidate, err := extractor.Extract(context.Background(), writeTestXML(t, partial))
	require.NoError(t, err)
	assert.Empty(t, candidate.DestinationUF)
	assert.Empty(t, candidate.CFOP)
}

func TestXMLExtractStructuralFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not xml", "this is not xml"},
		{"no infNFe", "<NFe><other/></NFe>"},
		{"missing ICMSTot", `<NFe><infNFe><emit><enderEmit><UF>SP</UF></enderEmit></emit><total></total></infNFe></NFe>`},
		{"bad total", `<NFe><infNFe><total><ICMSTot><vNF>abc</vNF></ICMSTot></total></infNFe></NFe>`},
	}
	extractor := NewXMLExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := extractor.Extract(context.Background(), writeTestXML(t, tt.content))
			var extErr *common.ExtractionError
			require.ErrorAs(t, err, &extErr)
		})
	}
}

func TestXMLExtractMissingFile(t *testing.T) {
	extractor := NewXMLExtractor()
	_, err := extractor.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.xml"))
	var extErr *common.ExtractionError
	require.ErrorAs(t, err, &extErr)
}
