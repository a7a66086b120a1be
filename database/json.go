package database

import (
	"context"
	"encoding/json"
	"os"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// JsonDB keeps every guild config in memory and writes the whole state to one file on each change.
type JsonDB struct {
	path  string
	log   *zap.Logger
	state *state
}

type state struct {
	sync.Mutex
	Guilds map[string]json.RawMessage `json:"guilds"`
}

func NewJSONDatabase(c *Config) (*JsonDB, error) {
	db := &JsonDB{
		path: c.Path,
		log:  c.Log,
		state: &state{
			Guilds: make(map[string]json.RawMessage),
		},
	}
	err := db.load()
	return db, err
}

func (j *JsonDB) Close() error {
	j.state.Lock()
	defer j.state.Unlock()
	return j.save()
}

func (j *JsonDB) load() error {
	if _, err := os.Stat(j.path); err != nil {
		j.log.Info("no data file found, using default", zap.String("path", j.path))
		return nil
	}

	d, err := os.ReadFile(j.path)
	if err != nil {
		return err
	}

	st := &state{}
	if err := json.Unmarshal(d, st); err != nil {
		return err
	}
	if st.Guilds == nil {
		st.Guilds = make(map[string]json.RawMessage)
	}
	j.state = st
	return nil
}

// save must be called with the state locked.
func (j *JsonDB) save() error {
	d, err := json.Marshal(j.state)
	if err != nil {
		return err
	}

	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, d, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, j.path)
}

func (j *JsonDB) GetGuildConfig(_ context.Context, gid string) ([]byte, error) {
	j.state.Lock()
	defer j.state.Unlock()
	if v, ok := j.state.Guilds[gid]; ok {
		return slices.Clone(v), nil
	}
	return nil, ErrNotFound
}

func (j *JsonDB) SetGuildConfig(_ context.Context, gid string, data []byte) error {
	j.state.Lock()
	defer j.state.Unlock()
	j.state.Guilds[gid] = slices.Clone(data)
	return j.save()
}

func (j *JsonDB) GuildIDs(_ context.Context) ([]string, error) {
	j.state.Lock()
	defer j.state.Unlock()
	ids := make([]string, 0, len(j.state.Guilds))
	for id := range j.state.Guilds {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
