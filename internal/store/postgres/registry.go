package postgres

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rileyhilliard/nekowatch/internal/host"
	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
)

// Registry reads hosts from the servers table.
type Registry struct {
	pool *pgxpool.Pool
}

var _ host.Registry = (*Registry)(nil)

// hostData is the JSON document in servers.data.
type hostData struct {
	SSH    sshutil.Credential `json:"ssh"`
	API    host.APIEndpoint   `json:"api"`
	Device string             `json:"device,omitempty"`
}

const selectHosts = `SELECT sid, name, data, top, status FROM servers`

// List implements host.Registry.
func (r *Registry) List(ctx context.Context) ([]host.Host, error) {
	rows, err := r.pool.Query(ctx, selectHosts+` ORDER BY top DESC, name`)
	if err != nil {
		return nil, storeErr(err, "host list")
	}
	hosts, err := pgx.CollectRows(rows, scanHost)
	if err != nil {
		return nil, storeErr(err, "host list")
	}
	return hosts, nil
}

// Get implements host.Registry.
func (r *Registry) Get(ctx context.Context, id string) (host.Host, error) {
	rows, err := r.pool.Query(ctx, selectHosts+` WHERE sid = $1`, id)
	if err != nil {
		return host.Host{}, storeErr(err, "host read")
	}
	h, err := pgx.CollectExactlyOneRow(rows, scanHost)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return host.Host{}, host.NotFound(id)
	}
	if err != nil {
		return host.Host{}, storeErr(err, "host read")
	}
	return h, nil
}

// Upsert inserts or replaces a host. A missing id is generated from the name.
func (r *Registry) Upsert(ctx context.Context, h host.Host) (host.Host, error) {
	if h.ID == "" {
		h.ID = host.GenerateID(h.Name)
	}
	if err := host.Validate(h); err != nil {
		return host.Host{}, err
	}

	data, err := json.Marshal(hostData{SSH: h.SSH, API: h.API, Device: h.Device})
	if err != nil {
		return host.Host{}, storeErr(err, "host encode")
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO servers (sid, name, data, top, status) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (sid) DO UPDATE SET name = EXCLUDED.name, data = EXCLUDED.data,
			top = EXCLUDED.top, status = EXCLUDED.status`,
		h.ID, h.Name, data, h.Top, int(h.Status))
	if err != nil {
		return host.Host{}, storeErr(err, "host write")
	}
	return h, nil
}

// Delete removes a host row. Deleting an unknown id is not an error.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM servers WHERE sid = $1`, id); err != nil {
		return storeErr(err, "host delete")
	}
	return nil
}

func scanHost(row pgx.CollectableRow) (host.Host, error) {
	var (
		h      host.Host
		raw    []byte
		status int
	)
	if err := row.Scan(&h.ID, &h.Name, &raw, &h.Top, &status); err != nil {
		return host.Host{}, err
	}
	var data hostData
	if err := json.Unmarshal(raw, &data); err != nil {
		return host.Host{}, err
	}
	h.Status = host.Status(status)
	h.SSH = data.SSH
	h.API = data.API
	h.Device = data.Device
	return h, nil
}
