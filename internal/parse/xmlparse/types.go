package xmlparse

import "encoding/xml"

// The regulator XML shapes (spec §4.B.3, shapes XML_001..XML_004) share a
// DADOS_BASICOS root carrying CNPJ/installation/generation metadata; 001-003
// additionally carry flow-computer configuration, meter factors, instrument
// inventory and reporting periods, while 004 carries an alarm/audit event
// list instead. Decimal fields use a comma separator and dates are
// "DD/MM/YYYY HH:MM:SS", matching the original_source/ fixtures.

type rawProduction struct {
	XMLName xml.Name        `xml:"DADOS_BASICOS"`
	CNPJ    string          `xml:"CNPJ"`
	Plant   string          `xml:"INSTALACAO"`
	Created string          `xml:"DATA_GERACAO"`
	Config  rawFlowComputer `xml:"CONFIGURACAO_COMPUTADOR_DE_VAZAO"`
	Factors rawFactors      `xml:"FATORES_MEDICAO"`
	Instr   rawInstruments  `xml:"INSTRUMENTOS"`
	Periods rawPeriods      `xml:"PERIODOS"`
}

type rawFlowComputer struct {
	Serial      string `xml:"NUMERO_SERIE"`
	CollectedAt string `xml:"DATA_COLETA"`
	Ambient     string `xml:"CONDICOES_AMBIENTE"`
	Reference   string `xml:"CONDICOES_REFERENCIA"`
	SoftwareVer string `xml:"VERSAO_SOFTWARE"`
}

type rawFactors struct {
	Factor []rawFactor `xml:"FATOR"`
}

type rawFactor struct {
	Index  int    `xml:"numero,attr"`
	Factor string `xml:"FATOR_MEDICAO"`
	Pulses string `xml:"CONTADOR_PULSOS"`
}

type rawInstruments struct {
	Instrument []rawInstrument `xml:"INSTRUMENTO"`
}

type rawInstrument struct {
	Kind         string `xml:"tipo,attr"`
	Serial       string `xml:"NUMERO_SERIE"`
	Manufacturer string `xml:"FABRICANTE"`
	Model        string `xml:"MODELO"`
	Range        string `xml:"FAIXA"`
	LastCal      string `xml:"ULTIMA_CALIBRACAO"`
	Uncertainty  string `xml:"INCERTEZA_PADRAO"`
}

type rawPeriods struct {
	Period []rawPeriod `xml:"PERIODO"`
}

type rawPeriod struct {
	Start           string `xml:"INICIO"`
	End             string `xml:"FIM"`
	GrossVolume     string `xml:"VOLUME_BRUTO"`
	NetVolume       string `xml:"VOLUME_LIQUIDO"`
	CorrectedVolume string `xml:"VOLUME_CORRIGIDO"`
	TotalizerStart  string `xml:"TOTALIZADOR_INICIAL"`
	TotalizerEnd    string `xml:"TOTALIZADOR_FINAL"`
	BSW             string `xml:"BSW"`
	Density         string `xml:"MASSA_ESPECIFICA"`
	Pressure        string `xml:"PRESSAO"`
	Temperature     string `xml:"TEMPERATURA"`
	CTL             string `xml:"CTL"`
	CPL             string `xml:"CPL"`
	CTPL            string `xml:"CTPL"`
	MeterFactor     string `xml:"FATOR_MEDICAO"`
}

type rawAlarm struct {
	XMLName xml.Name      `xml:"DADOS_BASICOS"`
	CNPJ    string        `xml:"CNPJ"`
	Plant   string        `xml:"INSTALACAO"`
	Created string        `xml:"DATA_GERACAO"`
	Events  rawEventsList `xml:"EVENTOS"`
}

type rawEventsList struct {
	Event []rawEvent `xml:"EVENTO"`
}

type rawEvent struct {
	Timestamp string `xml:"DATA_HORA"`
	Parameter string `xml:"PARAMETRO"`
	Value     string `xml:"VALOR"`
	OldValue  string `xml:"VALOR_ANTIGO"`
	NewValue  string `xml:"VALOR_NOVO"`
	Audit     string `xml:"AUDITORIA,attr"`
}
