package sqlinline

const QSelectPreset = `--sql c3d13d70-e18c-4743-8bdb-ac0a4c35e5e2
select id, name, methods
from presets
where id = $1;
`

const QSelectDefaultPreset = `--sql ad8b7a32-fe62-46bb-aa6c-580a82a596b3
select id, name, methods
from presets
where is_default
order by id asc
limit 1;
`

// QSeedDefaultPreset inserts the built-in preset only when no default exists
// yet, so operator-tuned presets are never overwritten on restart.
const QSeedDefaultPreset = `--sql c2590aa2-5c65-4131-a82f-ffd5e534049f
insert into presets (name, is_default, methods)
select $1, true, $2::jsonb
where not exists (select 1 from presets where is_default);
`
