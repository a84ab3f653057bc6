package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    worker TEXT NOT NULL DEFAULT '',
    client TEXT NOT NULL DEFAULT '',
    frequency TEXT NOT NULL DEFAULT 'One Time',
    params TEXT NOT NULL DEFAULT '{}',
    due_date DATE,
    status TEXT NOT NULL DEFAULT 'Not Started',
    completed_at DATETIME,
    auditor TEXT NOT NULL DEFAULT '',
    audit_status TEXT NOT NULL DEFAULT 'Pending',
    audit_remarks TEXT NOT NULL DEFAULT '',
    remarks TEXT NOT NULL DEFAULT '',
    parent_id INTEGER,
    revision INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);

-- Append-only; seq breaks ties between entries with equal timestamps.
CREATE TABLE IF NOT EXISTS task_history (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    task_id INTEGER NOT NULL,
    user_id TEXT,
    user_name TEXT NOT NULL DEFAULT '',
    action TEXT NOT NULL,
    details TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    FOREIGN KEY (task_id) REFERENCES tasks(id)
);

CREATE INDEX IF NOT EXISTS idx_task_history_task ON task_history(task_id, created_at);
`
