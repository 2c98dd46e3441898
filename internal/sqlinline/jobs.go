package sqlinline

const QInsertJob = `--sql 34029d6a-1446-470b-a869-d1a80b5ca650
insert into generation_jobs (id, status, request_json)
values ($1, 'PENDING', $2);
`

// QClaimJob takes the oldest runnable job: either still PENDING or RUNNING
// with an expired lease (worker crash redelivery). The attempt counter and a
// fresh lease are set in the same statement so a claim is atomic.
const QClaimJob = `--sql 9c436d5b-fd27-48e8-9565-01e1efeec718
with next_job as (
    select id
    from generation_jobs
    where status = 'PENDING'
       or (status = 'RUNNING' and lease_expires_at < now())
    order by created_at asc
    for update skip locked
    limit 1
),
claimed as (
    update generation_jobs
    set status = 'RUNNING',
        attempt_count = attempt_count + 1,
        lease_expires_at = now() + make_interval(secs => $1),
        updated_at = now()
    where id in (select id from next_job)
    returning id, request_json, attempt_count, created_at
)
select * from claimed;
`

const QCompleteJob = `--sql d9e2c3b6-d7cd-4c8b-8d31-dea6277c614a
update generation_jobs
set status = 'COMPLETED',
    output_paths = $2,
    lease_expires_at = null,
    updated_at = now()
where id = $1 and status = 'RUNNING';
`

const QFailJob = `--sql 95b847c7-3c14-4ce3-ae64-156aa2888a37
update generation_jobs
set status = 'FAILED',
    error_category = $2,
    error_message = $3,
    lease_expires_at = null,
    updated_at = now()
where id = $1 and status = 'RUNNING';
`

const QSelectJob = `--sql b64c46c6-faad-445c-891f-98a8fad790ec
select id, status, request_json, attempt_count,
       coalesce(lease_expires_at, 'epoch'::timestamptz),
       coalesce(output_paths, '[]'::jsonb),
       coalesce(error_message, ''),
       coalesce(error_category, ''),
       created_at, updated_at
from generation_jobs
where id = $1;
`
