package consts

import "os"

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// Extension is the file extension of every changeset, table and procedure file.
	Extension = ".sql"

	// DefaultConfigFile is the configuration file looked up in the working directory.
	DefaultConfigFile = "changekeeper.yaml"

	// DefaultHistorySchema is the schema holding the migration history table.
	DefaultHistorySchema = "changeset_migrate"

	// DefaultHistoryTable is the name of the migration history table.
	DefaultHistoryTable = "migration_history"

	// DefaultTargetFolder is the root directory for audit copies.
	DefaultTargetFolder = "deployed"

	// DefaultTablesFolder is the source directory for table-create statements.
	DefaultTablesFolder = "tables"

	// DefaultChangesetsFolder is the source directory for multi-changeset files.
	DefaultChangesetsFolder = "changesets"

	// DefaultProceduresFolder is the source directory for procedure and function definitions.
	DefaultProceduresFolder = "procedures"
)

// DefaultEncodings lists the encodings tried, in order, when reading source files.
var DefaultEncodings = []string{"utf-8", "windows-1252"}
