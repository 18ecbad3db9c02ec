package sqlite

// Schema DDL for all tables. Dates and timestamps are RFC 3339 text; an
// empty string means unset. Evidence lists are JSON text.
const (
	createProjects = `CREATE TABLE projects (
    project_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    client TEXT NOT NULL DEFAULT '',
    contract_value INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createStages = `CREATE TABLE stages (
    stage_id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    name TEXT NOT NULL,
    weight REAL NOT NULL,
    status TEXT NOT NULL,
    start_date TEXT NOT NULL DEFAULT '',
    end_date TEXT NOT NULL DEFAULT '',
    evidence TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (project_id) REFERENCES projects(project_id)
);`

	createBudgetItems = `CREATE TABLE budget_items (
    budget_id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    stage_id TEXT NOT NULL,
    category TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    amount INTEGER NOT NULL DEFAULT 0,
    realized INTEGER NOT NULL DEFAULT 0,
    evidence TEXT NOT NULL DEFAULT '[]',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (project_id) REFERENCES projects(project_id),
    FOREIGN KEY (stage_id) REFERENCES stages(stage_id)
);`
)

// Index DDL for common queries.
const (
	idxStagesProject      = `CREATE INDEX idx_stages_project ON stages(project_id, ordinal);`
	idxStagesStatus       = `CREATE INDEX idx_stages_status ON stages(status);`
	idxBudgetItemsProject = `CREATE INDEX idx_budget_items_project ON budget_items(project_id);`
	idxBudgetItemsStage   = `CREATE INDEX idx_budget_items_stage ON budget_items(stage_id);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createProjects,
	createStages,
	createBudgetItems,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxStagesProject,
	idxStagesStatus,
	idxBudgetItemsProject,
	idxBudgetItemsStage,
}
