package sqlinline

// Every job query returns the same column list, in the order scanJob expects.

const QEnqueueJob = `--sql e10ba4ec-dfc9-4a54-9659-5632c3c4b18b
insert into thumbnail_jobs (id, fingerprint, status, priority, attempts, max_attempts, options, source_key, country, run_after, created_at, updated_at)
values ($1::uuid, $2::text, 'queued', $3::int, 0, $4::int, $5::jsonb, $6::text, $7::text, now(), now(), now())
on conflict (fingerprint) where status <> 'failed' do nothing
returning id::text, fingerprint, status, priority, attempts, max_attempts, options, source_key, country, result, error_message, run_after, created_at, updated_at;
`

const QSelectLiveJobByFingerprint = `--sql 52499ebc-bee7-44e4-b11e-647261c26a09
select id::text, fingerprint, status, priority, attempts, max_attempts, options, source_key, country, result, error_message, run_after, created_at, updated_at
from thumbnail_jobs
where fingerprint = $1::text and status <> 'failed'
order by created_at desc
limit 1;
`

const QClaimJob = `--sql 221a0a05-be14-4b72-9298-748506b69928
with next_job as (
    select id
    from thumbnail_jobs
    where (status = 'queued' and run_after <= now())
       or ($1::double precision > 0
           and status = 'running'
           and updated_at < now() - make_interval(secs => $1::double precision))
    order by priority desc, created_at asc
    for update skip locked
    limit 1
)
update thumbnail_jobs j
set status = 'running', attempts = j.attempts + 1, updated_at = now()
from next_job
where j.id = next_job.id
returning j.id::text, j.fingerprint, j.status, j.priority, j.attempts, j.max_attempts, j.options, j.source_key, j.country, j.result, j.error_message, j.run_after, j.created_at, j.updated_at;
`

const QMarkJobSucceeded = `--sql ac96cecc-ba2d-4e78-8843-2b42d3e474b5
update thumbnail_jobs
set status = 'succeeded', result = $2::jsonb, error_message = '', updated_at = now()
where id = $1::uuid;
`

const QMarkJobRetry = `--sql 981b820e-dd52-4fa4-bd9f-1f49c7809897
update thumbnail_jobs
set status = 'queued', error_message = $2::text, run_after = $3::timestamptz, updated_at = now()
where id = $1::uuid and status = 'running';
`

// A running job whose heartbeat is older than the lease is claimable again.
const QHeartbeatJob = `--sql 7c3f5a2e-91d4-4b6a-8e0f-3d2c1b9a6f47
update thumbnail_jobs
set updated_at = now()
where id = $1::uuid and status = 'running';
`

const QReleaseJob = `--sql 5e8d2b71-0c4a-4f39-a6d2-9b1e7f3c8a05
update thumbnail_jobs
set status = 'queued', attempts = greatest(attempts - 1, 0), error_message = $2::text, run_after = now(), updated_at = now()
where id = $1::uuid and status = 'running';
`

const QMarkJobFailed = `--sql 108445b6-8f5b-451d-8d8b-256f2a45a718
update thumbnail_jobs
set status = 'failed', error_message = $2::text, updated_at = now()
where id = $1::uuid;
`

const QSelectJob = `--sql b41f5b96-07bf-4c07-a08d-e1577152d5d9
select id::text, fingerprint, status, priority, attempts, max_attempts, options, source_key, country, result, error_message, run_after, created_at, updated_at
from thumbnail_jobs
where id = $1::uuid;
`

const QListRecentJobs = `--sql e244a0b3-2309-43f0-8174-0000eb479727
select id::text, fingerprint, status, priority, attempts, max_attempts, options, source_key, country, result, error_message, run_after, created_at, updated_at
from thumbnail_jobs
order by created_at desc
limit $1::int;
`

const QJobStats = `--sql 49314c6b-581d-4019-b0f2-e7b2855c15f5
select status, coalesce(nullif(country, ''), 'unknown') as country, count(*)::int
from thumbnail_jobs
group by status, 2;
`
