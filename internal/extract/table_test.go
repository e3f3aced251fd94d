package extract

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/company-list-crawler/internal/crawler"
)

const companyPage = `<html><body>
<table id="table" class="table">
  <thead><tr><th>CIN</th><th>Name</th><th>ROC</th><th>Status</th></tr></thead>
  <tbody>
    <tr>
      <td>U72900KA2020PTC000001</td>
      <td><a href="/company/ACME">ACME <span>SOFTWARE</span> PRIVATE LIMITED</a></td>
      <td>RoC-Bangalore</td>
      <td>Active</td>
    </tr>
    <tr><td></td><td><a>NO NAME LTD</a></td><td>RoC-Delhi</td><td>Active</td></tr>
    <tr>
      <td>L17110MH1973PLC019786</td>
      <td><a>RELIANCE INDUSTRIES LIMITED</a></td>
      <td>RoC-Mumbai<br/>(old)</td>
      <td>Active</td>
    </tr>
    <tr><td>U00000XX0000PTC000000</td><td></td><td>RoC-Pune</td><td>Strike Off</td></tr>
  </tbody>
</table>
</body></html>`

func TestTableExtractorKeepsWellFormedRowsInOrder(t *testing.T) {
	t.Parallel()

	table, err := NewTableExtractor("").Extract([]byte(companyPage))
	require.NoError(t, err)
	require.Equal(t, []crawler.Record{
		{
			Name:    "U72900KA2020PTC000001",
			Company: "ACME SOFTWARE PRIVATE LIMITED",
			ROC:     "RoC-Bangalore",
			Status:  "Active",
		},
		{
			Name:    "L17110MH1973PLC019786",
			Company: "RELIANCE INDUSTRIES LIMITED",
			ROC:     "RoC-Mumbai",
			Status:  "Active",
		},
	}, table.Records)
	// header row, row without name, row without company
	require.Equal(t, 3, table.SkippedRows)
}

func TestTableExtractorMissingTable(t *testing.T) {
	t.Parallel()

	table, err := NewTableExtractor(DefaultTableSelector).Extract([]byte(`<html><body><p>maintenance</p></body></html>`))
	require.NoError(t, err)
	require.Empty(t, table.Records)
	require.Zero(t, table.SkippedRows)
}

func TestTableExtractorMissingTrailingColumns(t *testing.T) {
	t.Parallel()

	body := `<table id="table"><tr><td>CIN-1</td><td>ONLY TWO COLUMNS LTD</td></tr></table>`
	table, err := NewTableExtractor("").Extract([]byte(body))
	require.NoError(t, err)
	require.Equal(t, []crawler.Record{{Name: "CIN-1", Company: "ONLY TWO COLUMNS LTD"}}, table.Records)
}

func TestTableExtractorCustomSelector(t *testing.T) {
	t.Parallel()

	body := `<table id="table"><tr><td>ignored</td><td>IGNORED LTD</td></tr></table>
<table class="companies"><tr><td>CIN-2</td><td>PICKED LTD</td><td>RoC-Goa</td><td>Active</td></tr></table>`
	table, err := NewTableExtractor("table.companies").Extract([]byte(body))
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	require.Equal(t, "PICKED LTD", table.Records[0].Company)
}

func TestFirstTextUsesOnlyFirstTextNode(t *testing.T) {
	t.Parallel()

	body := `<table id="table"><tr><td><b>bold</b> first <i>x</i> second</td><td>CO</td></tr></table>`
	table, err := NewTableExtractor("").Extract([]byte(body))
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	require.Equal(t, "first", table.Records[0].Name)
}
