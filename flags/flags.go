package flags

import (
	"strings"

	"github.com/pteich/elastic-repository/elastic"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatRAW  = "raw"
)

type Flags struct {
	ElasticURL       string `cli:"connect" cliAlt:"c" env:"ELASTIC_URL" usage:"ElasticSearch URL"`
	ElasticVersion   int    `cli:"esversion" env:"ELASTIC_VERSION" usage:"ElasticSearch major version [7|8|9]"`
	ElasticUser      string `cli:"user" env:"ELASTIC_USER" usage:"ElasticSearch Username"`
	ElasticPass      string `cli:"pass" env:"ELASTIC_PASS" usage:"ElasticSearch Password"`
	ElasticVerifySSL bool   `cli:"verifySSL" usage:"Verify SSL certificate"`
	ElasticClientCrt string `cli:"cert" usage:"Client certificate for mutual TLS"`
	ElasticClientKey string `cli:"key" usage:"Client key for mutual TLS"`
	Trace            bool   `cli:"trace" usage:"Log requests to the cluster (7.x client only)"`
	Index            string `cli:"index" cliAlt:"i" env:"ELASTIC_INDEX" usage:"ElasticSearch Index (or Index Prefix)"`
	RAWQuery         string `cli:"rawquery" cliAlt:"r" usage:"ElasticSearch raw query clause as JSON"`
	Query            string `cli:"query" cliAlt:"q" usage:"Lucene query same that is used in Kibana search input"`
	SearchFields     string `cli:"searchfields" usage:"Fields the Lucene query searches as comma separated list"`
	OutFormat        string `cli:"outformat" cliAlt:"f" usage:"Format of the output data. [json|csv|raw]"`
	Outfile          string `cli:"outfile" cliAlt:"o" usage:"Path to output file, - for stdout"`
	StartDate        string `cli:"start" cliAlt:"s" usage:"Start date for included documents"`
	EndDate          string `cli:"end" cliAlt:"e" usage:"End date for included documents"`
	ScrollSize       int    `cli:"size" usage:"Number of documents that will be returned per scroll page"`
	KeepAlive        string `cli:"keepalive" usage:"How long a scroll context is kept open between pages"`
	Timefield        string `cli:"timefield" usage:"Field name to use for start and end date query"`
	Fieldlist        string `cli:"fields" usage:"Fields to include in export as comma separated list"`
	Sort             string `cli:"sort" usage:"Sort as field:asc or field:desc"`
	GroupBy          string `cli:"groupby" usage:"Write one row per distinct combination of these comma separated fields"`
	Count            bool   `cli:"count" usage:"Only print the number of matching documents"`
	LogLevel         string `cli:"loglevel" env:"LOG_LEVEL" usage:"Log level [debug|info|warn|error]"`
	LogFormat        string `cli:"logformat" env:"LOG_FORMAT" usage:"Log format [json|console]"`
	Fields           []string
}

// Default returns the flag values used when nothing is given.
func Default() Flags {
	return Flags{
		ElasticURL:     "http://localhost:9200",
		ElasticVersion: 8,
		Index:          "logs-*",
		Query:          "*",
		OutFormat:      FormatCSV,
		Outfile:        "output.csv",
		ScrollSize:     1000,
		KeepAlive:      "1m",
		Timefield:      "Timestamp",
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// Connection returns the cluster connection settings.
func (f *Flags) Connection() elastic.Config {
	return elastic.Config{
		URL:        f.ElasticURL,
		User:       f.ElasticUser,
		Pass:       f.ElasticPass,
		VerifySSL:  f.ElasticVerifySSL,
		ClientCert: f.ElasticClientCrt,
		ClientKey:  f.ElasticClientKey,
		Trace:      f.Trace,
	}
}

// SplitFields fills Fields from Fieldlist.
func (f *Flags) SplitFields() {
	if f.Fieldlist != "" {
		f.Fields = split(f.Fieldlist)
	}
}

func (f *Flags) GroupByFields() []string {
	return split(f.GroupBy)
}

func (f *Flags) SearchFieldList() []string {
	return split(f.SearchFields)
}

func split(list string) []string {
	var out []string
	for _, s := range strings.Split(list, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
