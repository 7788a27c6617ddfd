package planxml

import (
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseString(t *testing.T, s string) *Document {
	t.Helper()
	doc, err := Parse(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

func TestParse_LinkNameFlags(t *testing.T) {
	doc := parseString(t, `<answers>
		<LinkName value="YesAutoEnroll" selected="1" insert="0"/>
		<LinkName value="NoAutoEnroll" selected="0" insert="0"/>
		<LinkName value="ERMCElectDefPerc" selected="0" insert="1">100%</LinkName>
	</answers>`)

	assert.True(t, doc.Flags.IsSelected("YesAutoEnroll"))
	assert.False(t, doc.Flags.IsSelected("NoAutoEnroll"))
	assert.Equal(t, "100%", doc.Flags.Text("ERMCElectDefPerc"))
	assert.True(t, doc.Flags["ERMCElectDefPerc"].Insert)
}

func TestParse_PlanDataImpliesSelected(t *testing.T) {
	doc := parseString(t, `<export>
		<PlanData FieldName="4YRGradedNEContr"/>
		<PlanData FieldName="ConsecMonthsServReq">12</PlanData>
	</export>`)

	assert.True(t, doc.Flags.IsSelected("4YRGradedNEContr"))
	assert.Equal(t, "12", doc.Flags.Text("ConsecMonthsServReq"))
}

func TestParse_LinkNameWinsOverPlanData(t *testing.T) {
	doc := parseString(t, `<answers>
		<LinkName value="Field" selected="0" insert="0"/>
		<PlanData FieldName="Field">backfilled</PlanData>
	</answers>`)

	// Explicit record's selection state survives; missing text is backfilled.
	assert.False(t, doc.Flags.IsSelected("Field"))
	assert.Equal(t, "backfilled", doc.Flags.Text("Field"))
}

func TestParse_ExplicitTextNotOverwritten(t *testing.T) {
	doc := parseString(t, `<answers>
		<LinkName value="Field" selected="1" insert="0">kept</LinkName>
		<PlanData FieldName="Field">ignored</PlanData>
	</answers>`)

	assert.Equal(t, "kept", doc.Flags.Text("Field"))
}

func TestParse_MalformedIndicatorDefaultsToZero(t *testing.T) {
	doc := parseString(t, `<answers>
		<LinkName value="Field" selected="yes" insert="x"/>
	</answers>`)

	assert.False(t, doc.Flags.IsSelected("Field"))
	assert.False(t, doc.Flags["Field"].Insert)
}

func TestParse_UnparsableDocument(t *testing.T) {
	_, err := Parse(strings.NewReader(`<answers><LinkName`))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMalformed))
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMalformed))
}

func TestDocument_Label(t *testing.T) {
	doc := parseString(t, `<answers>
		<LinkName value="ReportingID" selected="0" insert="0">AB123</LinkName>
		<LinkName value="1stAdoptERName" selected="0" insert="0">Acme Mfg 401(k)</LinkName>
	</answers>`)

	assert.Equal(t, "AB123", doc.ClientID())
	assert.Equal(t, "Acme Mfg 401(k) [AB123]", doc.Label("fallback"))
}

func TestDocument_LabelFallsBackToProjectName(t *testing.T) {
	doc := parseString(t, `<export>
		<ProjectName>Western Crane Plan</ProjectName>
		<PlanData FieldName="SomeField"/>
	</export>`)

	assert.Equal(t, "Western Crane Plan", doc.Label("stem"))
}

func TestDocument_LabelFallback(t *testing.T) {
	doc := parseString(t, `<answers><LinkName value="X" selected="1" insert="0"/></answers>`)
	assert.Equal(t, "plan_007", doc.Label("plan_007"))
}
