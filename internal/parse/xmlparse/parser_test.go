package xmlparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oilfield/sgmfm/internal/domain"
)

const productionXML = `<?xml version="1.0" encoding="UTF-8"?>
<DADOS_BASICOS>
  <CNPJ>12345678000199</CNPJ>
  <INSTALACAO>PLAT-A</INSTALACAO>
  <DATA_GERACAO>01/02/2024 10:00:00</DATA_GERACAO>
  <CONFIGURACAO_COMPUTADOR_DE_VAZAO>
    <NUMERO_SERIE>FC-001</NUMERO_SERIE>
    <DATA_COLETA>01/02/2024 09:00:00</DATA_COLETA>
    <VERSAO_SOFTWARE>3.2</VERSAO_SOFTWARE>
  </CONFIGURACAO_COMPUTADOR_DE_VAZAO>
  <FATORES_MEDICAO>
    <FATOR numero="1"><FATOR_MEDICAO>1,002</FATOR_MEDICAO><CONTADOR_PULSOS>1000,0</CONTADOR_PULSOS></FATOR>
  </FATORES_MEDICAO>
  <INSTRUMENTOS>
    <INSTRUMENTO tipo="pressao">
      <NUMERO_SERIE>P-1</NUMERO_SERIE>
      <FABRICANTE>ACME</FABRICANTE>
      <INCERTEZA_PADRAO>0,1</INCERTEZA_PADRAO>
    </INSTRUMENTO>
  </INSTRUMENTOS>
  <PERIODOS>
    <PERIODO>
      <INICIO>01/02/2024 00:00:00</INICIO>
      <FIM>02/02/2024 00:00:00</FIM>
      <VOLUME_BRUTO>1.234,56</VOLUME_BRUTO>
      <BSW>0,5</BSW>
    </PERIODO>
  </PERIODOS>
</DADOS_BASICOS>`

const alarmXML = `<?xml version="1.0" encoding="UTF-8"?>
<DADOS_BASICOS>
  <CNPJ>12345678000199</CNPJ>
  <INSTALACAO>PLAT-A</INSTALACAO>
  <DATA_GERACAO>01/02/2024 10:00:00</DATA_GERACAO>
  <EVENTOS>
    <EVENTO AUDITORIA="true">
      <DATA_HORA>01/02/2024 08:00:00</DATA_HORA>
      <PARAMETRO>PRESSURE_HIGH</PARAMETRO>
      <VALOR_ANTIGO>100</VALOR_ANTIGO>
      <VALOR_NOVO>150</VALOR_NOVO>
    </EVENTO>
    <EVENTO>
      <DATA_HORA>01/02/2024 09:00:00</DATA_HORA>
      <PARAMETRO>LOW_FLOW</PARAMETRO>
      <VALOR>5</VALOR>
    </EVENTO>
  </EVENTOS>
</DADOS_BASICOS>`

func TestParseProductionXML(t *testing.T) {
	p := Parser{Shape: domain.ShapeXML001}
	out := p.Parse("12345678000199_PLAT-A_20240201.xml", []byte(productionXML))
	require.True(t, out.Success, "warnings=%v errors=%v", out.Warnings, out.Errors)
	require.Len(t, out.Records, 1)

	rec, ok := out.Records[0].(*domain.XMLProductionRecord)
	require.True(t, ok)
	assert.Equal(t, "12345678", rec.CNPJ8)
	assert.Equal(t, "PLAT-A", rec.Installation)
	assert.Equal(t, "FC-001", rec.Config.Serial)
	assert.InDelta(t, 1.002, rec.MeterFactors[0].MeterFactor, 1e-9)
	require.Len(t, rec.Pressure, 1)
	assert.Equal(t, "ACME", rec.Pressure[0].Manufacturer)
	require.Len(t, rec.Periods, 1)
	assert.InDelta(t, 1234.56, rec.Periods[0].GrossVolume, 1e-9)
	assert.InDelta(t, 0.5, rec.Periods[0].BSW, 1e-9)
}

func TestParseAlarmXML(t *testing.T) {
	p := Parser{Shape: domain.ShapeXML004}
	out := p.Parse("12345678000199_PLAT-A_20240201.xml", []byte(alarmXML))
	require.True(t, out.Success)

	rec, ok := out.Records[0].(*domain.XMLAlarmRecord)
	require.True(t, ok)
	require.Len(t, rec.Events, 2)
	assert.True(t, rec.Events[0].IsAudit)
	assert.Equal(t, "150", rec.Events[0].NewValue)
	assert.False(t, rec.Events[1].IsAudit)
}

func TestCNPJ8(t *testing.T) {
	assert.Equal(t, "12345678", cnpj8("12345678000199"))
	assert.Equal(t, "12345678", cnpj8("12.345.678/0001-99"))
}
