package sqlinline

const QSelectUserQuota = `--sql 13fa93cd-800c-4689-8e5d-e8221a9ca34a
select
    id,
    plan,
    coalesce(properties->'limits', '{}'::jsonb) as limits
from users
where id = $1::text
limit 1;
`

// QConsumeQuota rolls the window over to $2 and increments counter $3 when it
// is below $4, all under the row lock taken by the first CTE.
const QConsumeQuota = `--sql 4d78bf8d-45f5-455c-bcf1-2f873ea8c6fe
with current_window as (
    select
        u.id,
        case
            when u.properties->'limits'->>'date' = $2::text then u.properties->'limits'
            else jsonb_build_object('date', $2::text, 'mailsToday', 0, 'profileChangesToday', 0)
        end as limits,
        (u.properties->'limits'->>'date') is distinct from $2::text as rolled
    from users u
    where u.id = $1::text
    for update
),
decided as (
    select
        id,
        limits,
        rolled,
        coalesce((limits->>$3::text)::int, 0) as used,
        coalesce((limits->>$3::text)::int, 0) < $4::int as allowed
    from current_window
),
updated as (
    update users u
    set properties = jsonb_set(
            u.properties,
            '{limits}',
            case
                when d.allowed then jsonb_set(d.limits, array[$3::text], to_jsonb(d.used + 1), true)
                else d.limits
            end,
            true
        ),
        updated_at = now()
    from decided d
    where u.id = d.id
      and (d.allowed or d.rolled)
    returning u.properties->'limits' as limits
)
select
    d.allowed,
    coalesce((select limits from updated), d.limits) as limits
from decided d;
`

const QUpdateDisplayName = `--sql 89c79d58-36e1-4435-b628-e6c3f944b85b
update users
set display_name = $2::text,
    properties = jsonb_set(
        jsonb_set(
            properties,
            '{profile}',
            coalesce(properties->'profile', '{}'::jsonb) || jsonb_build_object('name', $2::text),
            true
        ),
        '{api}',
        coalesce(properties->'api', '{}'::jsonb) || jsonb_build_object('lastProfileNameUpdate', $3::text),
        true
    ),
    updated_at = now()
where id = $1::text
returning id;
`

const QSelectUserPlanByEmail = `--sql 54e72050-04c7-4741-983a-76bf7a7161c9
select id, email, plan, coalesce(properties->'limits', '{}'::jsonb) as limits
from users
where lower(email) = lower($1::text)
limit 1;
`

const QUpdateUserPlan = `--sql 3c8ffd09-e1ea-4f78-913f-83debfcbba2c
update users
set plan = $2::text,
    properties = case when $3::boolean then properties - 'limits' else properties end,
    updated_at = now()
where id = $1::text
returning id, email, plan, coalesce(properties->'limits', '{}'::jsonb) as limits;
`
