package lua

import (
	"os"
	"sync/atomic"

	glua "github.com/yuin/gopher-lua"

	"github.com/codersauce/red/internal/plugin/security"
)

// Sandbox restricts Lua execution to safe operations and gates
// filesystem/stdlib access behind security.Capability grants, shared
// with the rest of the plugin host rather than a package-local
// capability model.
type Sandbox struct {
	L *glua.LState

	instructionLimit int64
	instructionCount int64

	capabilities map[security.Capability]bool
}

// NewSandbox creates a new sandbox for the Lua state.
func NewSandbox(L *glua.LState, instructionLimit int64) *Sandbox {
	return &Sandbox{
		L:                L,
		instructionLimit: instructionLimit,
		capabilities:     make(map[security.Capability]bool),
	}
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, glua.LNil)
	}
	s.installSafeRequire()
}

// installSafeRequire replaces require with a whitelist-based version,
// after clearing package.path/cpath so nothing can load from disk.
// Only preloaded modules (via L.PreloadModule) and a small built-in
// whitelist are reachable; everything else raises a Lua error.
func (s *Sandbox) installSafeRequire() {
	pkg := s.L.GetGlobal("package")
	if pkg != glua.LNil {
		if pkgTable, ok := pkg.(*glua.LTable); ok {
			s.L.SetField(pkgTable, "path", glua.LString(""))
			s.L.SetField(pkgTable, "cpath", glua.LString(""))

			safeLoaded := map[string]bool{
				"_G": true, "string": true, "table": true, "math": true,
				"bit32": true, "utf8": true, "package": true,
			}
			loaded := s.L.GetField(pkgTable, "loaded")
			if loadedTbl, ok := loaded.(*glua.LTable); ok {
				var keysToRemove []string
				loadedTbl.ForEach(func(k, _ glua.LValue) {
					if ks, ok := k.(glua.LString); ok && !safeLoaded[string(ks)] {
						keysToRemove = append(keysToRemove, string(ks))
					}
				})
				for _, key := range keysToRemove {
					loadedTbl.RawSetString(key, glua.LNil)
				}
			}
		}
	}

	safeModules := map[string]bool{"string": true, "table": true, "math": true, "bit32": true, "utf8": true}
	originalRequire := s.L.GetGlobal("require")

	s.L.SetGlobal("require", s.L.NewFunction(func(L *glua.LState) int {
		modName := L.CheckString(1)

		if safeModules[modName] || modName == "red" || (len(modName) > 4 && modName[:4] == "red.") {
			L.Push(originalRequire)
			L.Push(glua.LString(modName))
			L.Call(1, 1)
			return 1
		}

		switch modName {
		case "io":
			if !s.capabilities[security.CapabilityFileRead] && !s.capabilities[security.CapabilityFileWrite] {
				L.RaiseError("module 'io' requires a filesystem capability")
			}
		case "os":
			if !s.capabilities[security.CapabilityUnsafe] {
				L.RaiseError("module 'os' requires the unsafe capability")
			}
		case "debug":
			if !s.capabilities[security.CapabilityUnsafe] {
				L.RaiseError("module 'debug' requires the unsafe capability")
			}
		default:
			L.RaiseError("module %q is not available", modName)
			return 0
		}
		L.Push(originalRequire)
		L.Push(glua.LString(modName))
		L.Call(1, 1)
		return 1
	}))
}

// ResetInstructionCount resets the instruction counter.
func (s *Sandbox) ResetInstructionCount() {
	atomic.StoreInt64(&s.instructionCount, 0)
}

// InstructionCount returns the current instruction count.
func (s *Sandbox) InstructionCount() int64 {
	return atomic.LoadInt64(&s.instructionCount)
}

// IncrementInstructions adds to the instruction count, returning true
// if the limit was exceeded.
func (s *Sandbox) IncrementInstructions(n int64) bool {
	if s.instructionLimit <= 0 {
		return false
	}
	return atomic.AddInt64(&s.instructionCount, n) > s.instructionLimit
}

// Grant enables a capability and injects the module it unlocks.
func (s *Sandbox) Grant(cap security.Capability) {
	s.capabilities[cap] = true

	switch cap {
	case security.CapabilityFileRead:
		s.injectFileReadAPI()
	case security.CapabilityFileWrite:
		s.injectFileWriteAPI()
	case security.CapabilityUnsafe:
		s.injectUnsafeLibraries()
	}
}

// Revoke disables a capability. Already-injected modules are not removed.
func (s *Sandbox) Revoke(cap security.Capability) {
	delete(s.capabilities, cap)
}

// HasCapability reports whether cap is granted.
func (s *Sandbox) HasCapability(cap security.Capability) bool {
	return s.capabilities[cap]
}

// Capabilities returns all granted capabilities.
func (s *Sandbox) Capabilities() []security.Capability {
	caps := make([]security.Capability, 0, len(s.capabilities))
	for cap, granted := range s.capabilities {
		if granted {
			caps = append(caps, cap)
		}
	}
	return caps
}

// CheckCapability returns an error if cap is not granted.
func (s *Sandbox) CheckCapability(cap security.Capability) error {
	if !s.capabilities[cap] {
		return security.NewCapabilityError(cap, "", "not granted")
	}
	return nil
}

func (s *Sandbox) injectFileReadAPI() {
	ioMod := s.L.NewTable()

	s.L.SetField(ioMod, "open", s.L.NewFunction(func(L *glua.LState) int {
		filename := L.CheckString(1)
		mode := L.OptString(2, "r")
		if mode != "r" && mode != "rb" {
			L.ArgError(2, "only read modes (r, rb) are allowed")
			return 0
		}
		file, err := os.Open(filename)
		if err != nil {
			L.Push(glua.LNil)
			L.Push(glua.LString(err.Error()))
			return 2
		}
		ud := L.NewUserData()
		ud.Value = file
		L.SetMetatable(ud, s.fileMetatable())
		L.Push(ud)
		return 1
	}))

	s.L.SetField(ioMod, "lines", s.L.NewFunction(func(L *glua.LState) int {
		filename := L.CheckString(1)
		content, err := os.ReadFile(filename)
		if err != nil {
			L.RaiseError("cannot open file: %s", err.Error())
			return 0
		}
		lines := splitLines(string(content))
		idx := 0
		L.Push(L.NewFunction(func(L *glua.LState) int {
			if idx >= len(lines) {
				return 0
			}
			L.Push(glua.LString(lines[idx]))
			idx++
			return 1
		}))
		return 1
	}))

	s.L.SetGlobal("io", ioMod)
}

func (s *Sandbox) fileMetatable() *glua.LTable {
	mt := s.L.NewTable()
	index := s.L.NewTable()

	index.RawSetString("read", s.L.NewFunction(func(L *glua.LState) int {
		ud := L.CheckUserData(1)
		file, ok := ud.Value.(*os.File)
		if !ok {
			L.ArgError(1, "expected file")
			return 0
		}
		format := L.OptString(2, "*l")
		if format == "*a" || format == "*all" {
			content, err := os.ReadFile(file.Name())
			if err != nil {
				L.Push(glua.LNil)
				return 1
			}
			L.Push(glua.LString(content))
			return 1
		}
		L.Push(glua.LNil)
		return 1
	}))

	index.RawSetString("close", s.L.NewFunction(func(L *glua.LState) int {
		ud := L.CheckUserData(1)
		file, ok := ud.Value.(*os.File)
		if !ok {
			L.ArgError(1, "expected file")
			return 0
		}
		if err := file.Close(); err != nil {
			L.Push(glua.LNil)
			L.Push(glua.LString(err.Error()))
			return 2
		}
		L.Push(glua.LTrue)
		return 1
	}))

	s.L.SetField(mt, "__index", index)
	return mt
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			line := s[start:i]
			if len(line) > 0 && line[len(line)-1] == '\r' {
				line = line[:len(line)-1]
			}
			lines = append(lines, line)
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func (s *Sandbox) injectFileWriteAPI() {
	ioVal := s.L.GetGlobal("io")
	ioMod, ok := ioVal.(*glua.LTable)
	if !ok {
		ioMod = s.L.NewTable()
	}

	s.L.SetField(ioMod, "open", s.L.NewFunction(func(L *glua.LState) int {
		filename := L.CheckString(1)
		mode := L.OptString(2, "r")

		var flag int
		switch mode {
		case "r", "rb":
			flag = os.O_RDONLY
		case "w", "wb":
			flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		case "a", "ab":
			flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		default:
			L.ArgError(2, "invalid mode")
			return 0
		}

		file, err := os.OpenFile(filename, flag, 0o644)
		if err != nil {
			L.Push(glua.LNil)
			L.Push(glua.LString(err.Error()))
			return 2
		}
		ud := L.NewUserData()
		ud.Value = file
		L.SetMetatable(ud, s.writeFileMetatable())
		L.Push(ud)
		return 1
	}))

	s.L.SetGlobal("io", ioMod)
}

func (s *Sandbox) writeFileMetatable() *glua.LTable {
	mt := s.fileMetatable()
	index := s.L.GetField(mt, "__index").(*glua.LTable)

	index.RawSetString("write", s.L.NewFunction(func(L *glua.LState) int {
		ud := L.CheckUserData(1)
		file, ok := ud.Value.(*os.File)
		if !ok {
			L.ArgError(1, "expected file")
			return 0
		}
		for i := 2; i <= L.GetTop(); i++ {
			if _, err := file.WriteString(L.CheckString(i)); err != nil {
				L.Push(glua.LNil)
				L.Push(glua.LString(err.Error()))
				return 2
			}
		}
		L.Push(ud)
		return 1
	}))

	return mt
}

// injectUnsafeLibraries opens the full stdlib for a fully-trusted plugin.
func (s *Sandbox) injectUnsafeLibraries() {
	glua.OpenIo(s.L)
	glua.OpenOs(s.L)
	glua.OpenDebug(s.L)
}
