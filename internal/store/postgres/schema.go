package postgres

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    worker TEXT NOT NULL DEFAULT '',
    client TEXT NOT NULL DEFAULT '',
    frequency TEXT NOT NULL DEFAULT 'One Time',
    params JSONB NOT NULL DEFAULT '{}'::jsonb,
    due_date DATE,
    status TEXT NOT NULL DEFAULT 'Not Started',
    completed_at TIMESTAMPTZ,
    auditor TEXT NOT NULL DEFAULT '',
    audit_status TEXT NOT NULL DEFAULT 'Pending',
    audit_remarks TEXT NOT NULL DEFAULT '',
    remarks TEXT NOT NULL DEFAULT '',
    parent_id BIGINT,
    revision INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);
CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id);

CREATE TABLE IF NOT EXISTS task_history (
    seq BIGSERIAL PRIMARY KEY,
    id UUID NOT NULL UNIQUE,
    task_id BIGINT NOT NULL REFERENCES tasks(id),
    user_id TEXT,
    user_name TEXT NOT NULL DEFAULT '',
    action TEXT NOT NULL,
    details TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_task_history_task ON task_history(task_id, created_at DESC, seq DESC);
`
