package dynamo

// Config holds configuration for the Gateway.
type Config struct {
	// Table is the DynamoDB table holding every record. It needs a string
	// partition key "pk" and a string sort key "sk".
	// Default: "dyntable"
	Table string

	// PageSize caps the items returned per Query page. Zero leaves it to DynamoDB.
	PageSize int32
}

// DefaultConfig returns the defaults used by cmd/dyntable.
func DefaultConfig() Config {
	return Config{
		Table: "dyntable",
	}
}

// validate fills in defaults for unset values.
func (c *Config) validate() {
	if c.Table == "" {
		c.Table = "dyntable"
	}
	if c.PageSize < 0 {
		c.PageSize = 0
	}
}
