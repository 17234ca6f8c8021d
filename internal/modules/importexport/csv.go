package importexport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/atlasresearch/atlas/internal/domain"
	"github.com/atlasresearch/atlas/internal/modules/companies"
	"github.com/atlasresearch/atlas/internal/modules/investors"
)

var investorCSVHeader = []string{
	"name", "type", "description", "website", "city", "state", "country",
	"foundedYear", "aum", "teamSize",
}

var companyCSVHeader = []string{
	"name", "type", "stage", "description", "website", "city", "state", "country",
	"industry", "sector", "foundedYear", "ticker", "exchange",
}

var investmentCSVHeader = []string{
	"investorName", "companyName", "amount", "stage", "status",
	"investedAt", "leadInvestor", "notes",
}

func investorsToCSV(list []domain.Investor) ([]byte, error) {
	records := make([][]string, 0, len(list))
	for _, inv := range list {
		records = append(records, []string{
			inv.Name, string(inv.Type), inv.Description, inv.Website,
			inv.City, inv.State, inv.Country,
			formatInt(inv.FoundedYear), formatFloat(inv.AUM), formatInt(inv.TeamSize),
		})
	}
	return writeCSV(investorCSVHeader, records)
}

func companiesToCSV(list []domain.Company) ([]byte, error) {
	records := make([][]string, 0, len(list))
	for _, c := range list {
		records = append(records, []string{
			c.Name, string(c.Type), c.Stage, c.Description, c.Website,
			c.City, c.State, c.Country, c.Industry, c.Sector,
			formatInt(c.FoundedYear), c.Ticker, c.Exchange,
		})
	}
	return writeCSV(companyCSVHeader, records)
}

func investmentsToCSV(list []domain.Investment, investorNames, companyNames map[string]string) ([]byte, error) {
	records := make([][]string, 0, len(list))
	for _, inv := range list {
		investedAt := ""
		if inv.InvestedAt != nil {
			investedAt = inv.InvestedAt.Format(time.RFC3339)
		}
		records = append(records, []string{
			investorNames[inv.InvestorID], companyNames[inv.CompanyID],
			formatFloat(inv.Amount), string(inv.Stage), string(inv.Status),
			investedAt, strconv.FormatBool(inv.LeadInvestor), inv.Notes,
		})
	}
	return writeCSV(investmentCSVHeader, records)
}

// ParseInvestorsCSV decodes a CSV document into investor create inputs.
// The header row decides column order; unknown columns are ignored.
func ParseInvestorsCSV(data []byte) ([]investors.CreateInput, error) {
	rows, err := readCSV(data)
	if err != nil {
		return nil, err
	}

	inputs := make([]investors.CreateInput, 0, len(rows))
	for _, row := range rows {
		input := investors.CreateInput{
			Name:        row["name"],
			Type:        domain.InvestorType(row["type"]),
			Description: row["description"],
			Website:     row["website"],
			City:        row["city"],
			State:       row["state"],
			Country:     row["country"],
			FoundedYear: parseInt(row["foundedYear"]),
			AUM:         parseFloat(row["aum"]),
			TeamSize:    parseInt(row["teamSize"]),
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

// ParseCompaniesCSV decodes a CSV document into company create inputs.
func ParseCompaniesCSV(data []byte) ([]companies.CreateInput, error) {
	rows, err := readCSV(data)
	if err != nil {
		return nil, err
	}

	inputs := make([]companies.CreateInput, 0, len(rows))
	for _, row := range rows {
		input := companies.CreateInput{
			Name:        row["name"],
			Type:        domain.CompanyType(row["type"]),
			Stage:       row["stage"],
			Description: row["description"],
			Website:     row["website"],
			City:        row["city"],
			State:       row["state"],
			Country:     row["country"],
			Industry:    row["industry"],
			Sector:      row["sector"],
			FoundedYear: parseInt(row["foundedYear"]),
			Ticker:      row["ticker"],
			Exchange:    row["exchange"],
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

func writeCSV(header []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to write csv records: %w", err)
	}
	return buf.Bytes(), nil
}

// readCSV returns one map per data row, keyed by the header row.
func readCSV(data []byte) ([]map[string]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv document has no header row")
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseInt(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
