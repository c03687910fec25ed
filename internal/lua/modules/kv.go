package modules

import (
	"time"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/jhellqvist/casambid/internal/lua/exec"
	"github.com/jhellqvist/casambid/internal/storage/kv"
)

const bucketTypeName = "kv_bucket"

// KVModule gives scripts durable state between restarts: named buckets
// of JSON-ish values with optional TTL, persisted in the daemon's
// SQLite database. A bucket opened with persistent=false lives in
// memory only.
type KVModule struct {
	manager *kv.Manager
}

// NewKVModule creates a new KV module.
func NewKVModule(manager *kv.Manager) *KVModule {
	return &KVModule{manager: manager}
}

// Loader is the module loader for Lua.
func (m *KVModule) Loader(L *lua.LState) int {
	mt := L.NewTypeMetatable(bucketTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"store":  bucketStore,
		"get":    bucketGet,
		"exists": bucketExists,
		"delete": bucketDelete,
		"keys":   bucketKeys,
		"clear":  bucketClear,
	}))

	mod := L.NewTable()
	L.SetField(mod, "bucket", L.NewFunction(m.bucket))
	L.SetField(mod, "exists", L.NewFunction(m.exists))
	L.SetField(mod, "delete", L.NewFunction(m.delete))
	L.SetField(mod, "list", L.NewFunction(m.list))

	L.Push(mod)
	return 1
}

// bucket(name, opts) -> bucket userdata
// opts: { persistent = false } for a memory-only bucket
func (m *KVModule) bucket(L *lua.LState) int {
	L.CheckTable(1) // self
	name := L.CheckString(2)

	persistent := true
	if opts := L.OptTable(3, nil); opts != nil {
		if p := L.GetField(opts, "persistent"); p != lua.LNil {
			persistent = lua.LVAsBool(p)
		}
	}

	ud := L.NewUserData()
	ud.Value = m.manager.Bucket(name, persistent)
	L.SetMetatable(ud, L.GetTypeMetatable(bucketTypeName))
	L.Push(ud)
	return 1
}

// exists(name) -> bool
func (m *KVModule) exists(L *lua.LState) int {
	L.CheckTable(1) // self
	L.Push(lua.LBool(m.manager.Exists(L.CheckString(2))))
	return 1
}

// delete(name) -> bool
func (m *KVModule) delete(L *lua.LState) int {
	L.CheckTable(1) // self
	name := L.CheckString(2)

	deleted, err := m.manager.Delete(name)
	if err != nil {
		log.Warn().Err(err).Str("bucket", name).Msg("Failed to delete bucket")
		L.Push(lua.LFalse)
		return 1
	}
	L.Push(lua.LBool(deleted))
	return 1
}

// list() -> table of bucket names
func (m *KVModule) list(L *lua.LState) int {
	L.CheckTable(1) // self

	names, err := m.manager.List()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to list buckets")
		names = nil
	}
	L.Push(stringsToTable(L, names))
	return 1
}

func bucketArg(L *lua.LState) kv.Bucket {
	ud := L.CheckUserData(1)
	if b, ok := ud.Value.(kv.Bucket); ok {
		return b
	}
	L.ArgError(1, "bucket expected")
	return nil
}

func stringsToTable(L *lua.LState, ss []string) *lua.LTable {
	tbl := L.NewTable()
	for i, s := range ss {
		tbl.RawSetInt(i+1, lua.LString(s))
	}
	return tbl
}

// bucket:store(key, value, opts)
// opts: { ttl = seconds }
func bucketStore(L *lua.LState) int {
	b := bucketArg(L)
	key := L.CheckString(2)
	value := exec.FromLua(L.Get(3))

	var opts *kv.StoreOptions
	if optsTable := L.OptTable(4, nil); optsTable != nil {
		if ttl, ok := L.GetField(optsTable, "ttl").(lua.LNumber); ok {
			opts = &kv.StoreOptions{TTL: time.Duration(ttl) * time.Second}
		}
	}

	if err := b.Store(key, value, opts); err != nil {
		log.Warn().Err(err).Str("bucket", b.Name()).Str("key", key).Msg("Failed to store value")
	}
	return 0
}

// bucket:get(key) -> value | nil
func bucketGet(L *lua.LState) int {
	b := bucketArg(L)
	key := L.CheckString(2)

	value, err := b.Get(key)
	if err != nil {
		log.Warn().Err(err).Str("bucket", b.Name()).Str("key", key).Msg("Failed to get value")
	}
	if value == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(exec.ToLua(L, value))
	return 1
}

// bucket:exists(key) -> bool
func bucketExists(L *lua.LState) int {
	b := bucketArg(L)
	key := L.CheckString(2)

	exists, err := b.Exists(key)
	if err != nil {
		log.Warn().Err(err).Str("bucket", b.Name()).Str("key", key).Msg("Failed to check key")
	}
	L.Push(lua.LBool(exists))
	return 1
}

// bucket:delete(key) -> bool
func bucketDelete(L *lua.LState) int {
	b := bucketArg(L)
	key := L.CheckString(2)

	deleted, err := b.Delete(key)
	if err != nil {
		log.Warn().Err(err).Str("bucket", b.Name()).Str("key", key).Msg("Failed to delete key")
	}
	L.Push(lua.LBool(deleted))
	return 1
}

// bucket:keys() -> table of keys
func bucketKeys(L *lua.LState) int {
	b := bucketArg(L)

	keys, err := b.Keys()
	if err != nil {
		log.Warn().Err(err).Str("bucket", b.Name()).Msg("Failed to list keys")
		keys = nil
	}
	L.Push(stringsToTable(L, keys))
	return 1
}

// bucket:clear()
func bucketClear(L *lua.LState) int {
	b := bucketArg(L)
	if err := b.Clear(); err != nil {
		log.Warn().Err(err).Str("bucket", b.Name()).Msg("Failed to clear bucket")
	}
	return 0
}
