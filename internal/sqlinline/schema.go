package sqlinline

// Schema statements are applied in order at process start. Both the API and
// the worker run them; every statement is idempotent.
var SchemaStatements = []string{
	QCreateJobsTable,
	QCreateJobsClaimIndex,
	QCreatePresetsTable,
}

const QCreateJobsTable = `--sql 005e9638-3ced-49f0-9b17-cbb806cc1e27
create table if not exists generation_jobs (
    id               uuid primary key,
    status           text not null default 'PENDING',
    request_json     jsonb not null,
    attempt_count    int not null default 0,
    lease_expires_at timestamptz,
    output_paths     jsonb,
    error_message    text,
    error_category   text,
    created_at       timestamptz not null default now(),
    updated_at       timestamptz not null default now()
);
`

const QCreateJobsClaimIndex = `--sql b355c2ef-e74d-4c54-99dd-c81f89eeeb1a
create index if not exists generation_jobs_claim_idx
    on generation_jobs (status, created_at);
`

const QCreatePresetsTable = `--sql 8c089456-477c-4cc4-883f-5032e773f10f
create table if not exists presets (
    id          serial primary key,
    name        text not null,
    is_default  boolean not null default false,
    methods     jsonb not null,
    created_at  timestamptz not null default now()
);
`
