// Arkaan CLI - compiles and runs .ark files, hosts the REPL, and serves the
// language server.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/arkaan-lang/arkaan/cache"
	"github.com/arkaan-lang/arkaan/compiler"
	"github.com/arkaan-lang/arkaan/manifest"
	"github.com/arkaan-lang/arkaan/server"
	"github.com/arkaan-lang/arkaan/vm"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

var log = commonlog.GetLogger("arkaan")

func main() {
	interactive := flag.Bool("i", false, "Begin die interaktiewe REPL")
	lspMode := flag.Bool("lsp", false, "Begin die taalbediener op stdio")
	disasm := flag.Bool("disasm", false, "Druk die bytekode in plaas van uitvoering")
	noCache := flag.Bool("no-cache", false, "Slaan die stuk-kas oor")
	verbose := flag.Bool("v", false, "Verbose afvoer")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Gebruik: arkaan [opsies] [lêer.ark]\n\n")
		fmt.Fprintf(os.Stderr, "Opsies:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nVoorbeelde:\n")
		fmt.Fprintf(os.Stderr, "  arkaan program.ark        # Voer 'n lêer uit\n")
		fmt.Fprintf(os.Stderr, "  arkaan                    # Begin die REPL\n")
		fmt.Fprintf(os.Stderr, "  arkaan --lsp              # Begin die taalbediener\n")
		fmt.Fprintf(os.Stderr, "  arkaan --disasm prog.ark  # Wys die bytekode\n")
	}
	flag.Parse()

	if *verbose {
		commonlog.Configure(1, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	if *lspMode {
		if err := server.NewLSP(version).Run(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	args := flag.Args()
	switch {
	case len(args) == 0 || *interactive:
		repl(*noCache)
	case len(args) == 1:
		runFile(args[0], *disasm, *noCache)
	default:
		flag.Usage()
		os.Exit(64)
	}
}

// ---------------------------------------------------------------------------
// File execution
// ---------------------------------------------------------------------------

func runFile(path string, disasm, noCache bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Kon nie lêer lees nie: %v\n", err)
		os.Exit(66)
	}
	source := string(data)

	m, err := manifest.Find(filepath.Dir(path))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	chunk, err := loadChunk(source, m, noCache)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if disasm {
		fmt.Print(chunk.Disassemble(path))
		return
	}

	v := vm.NewWithLimits(limitsFrom(m))
	if _, err := v.Interpret(chunk); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadChunk compiles the source, going through the chunk cache keyed by the
// source's hash when it is enabled.
func loadChunk(source string, m *manifest.Manifest, noCache bool) (*vm.Chunk, error) {
	store := openStore(m, noCache)
	if store == nil {
		return compiler.Compile(source)
	}
	defer store.Close()

	hash := cache.SourceHash(source)
	if image, err := store.GetChunk(hash); err == nil {
		chunk, err := vm.UnmarshalChunk(image)
		if err == nil {
			log.Debugf("kas-treffer vir %s", hash[:12])
			return chunk, nil
		}
		log.Errorf("kas-inskrywing onleesbaar, herbou: %v", err)
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Errorf("kas-lees het misluk: %v", err)
	}

	chunk, err := compiler.Compile(source)
	if err != nil {
		return nil, err
	}

	image, err := vm.MarshalChunk(chunk)
	if err != nil {
		log.Errorf("kon nie stuk serialiseer nie: %v", err)
		return chunk, nil
	}
	buildID, err := store.PutChunk(hash, image)
	if err != nil {
		log.Errorf("kon nie stuk kas nie: %v", err)
		return chunk, nil
	}
	log.Debugf("stuk gekas as bou %s", buildID)
	return chunk, nil
}

func openStore(m *manifest.Manifest, noCache bool) *cache.Store {
	if noCache {
		return nil
	}
	defaultPath, err := cache.DefaultPath()
	if err != nil {
		log.Errorf("geen kas-pad nie: %v", err)
		return nil
	}
	path := defaultPath
	if m != nil && m.Cache.Enabled {
		path = m.CachePath(defaultPath)
	}
	store, err := cache.Open(path)
	if err != nil {
		log.Errorf("kon nie kas oopmaak nie: %v", err)
		return nil
	}
	return store
}

func limitsFrom(m *manifest.Manifest) vm.Limits {
	limits := vm.DefaultLimits()
	if m == nil {
		return limits
	}
	if m.Limits.StackSlots > 0 {
		limits.StackSlots = m.Limits.StackSlots
	}
	if m.Limits.Frames > 0 {
		limits.Frames = m.Limits.Frames
	}
	if m.Limits.MaxList > 0 {
		limits.ListLen = m.Limits.MaxList
	}
	if m.Limits.MaxString > 0 {
		limits.StringLen = m.Limits.MaxString
	}
	if m.Limits.MaxSteps > 0 {
		limits.Steps = m.Limits.MaxSteps
	}
	return limits
}

// ---------------------------------------------------------------------------
// REPL
// ---------------------------------------------------------------------------

// repl reads a line at a time. Session state survives errors: the VM keeps
// its globals and the compiler keeps its global-mutability table, so a laat
// binding stays immutable for the whole session.
func repl(noCache bool) {
	fmt.Printf("Arkaan v%s - 'n funksionele programmeertaal\n", version)
	fmt.Println("Tik 'verlaat' om te stop.")
	fmt.Println()

	v := vm.New()
	globals := make(compiler.GlobalInfo)

	var store *cache.Store
	sessionID := cache.NewSession()
	if s := openStore(nil, noCache); s != nil {
		store = s
		defer store.Close()
		log.Debugf("REPL-sessie %s", sessionID)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("arkaan> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "verlaat" {
			fmt.Println("Totsiens!")
			return
		}

		if store != nil {
			if err := store.AppendHistory(sessionID, line); err != nil {
				log.Errorf("geskiedenis: %v", err)
			}
		}

		result, err := runLine(v, globals, line)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if _, isNil := result.(vm.Nil); !isNil {
			fmt.Println(result.String())
		}
	}
}

func runLine(v *vm.VM, globals compiler.GlobalInfo, line string) (vm.Value, error) {
	prog, err := compiler.ParseSource(line)
	if err != nil {
		return nil, err
	}

	c := compiler.NewCompiler()
	c.SetGlobalInfo(globals)
	c.SetREPLMode(true)
	chunk, err := c.CompileProgram(prog)
	if err != nil {
		return nil, err
	}

	return v.Interpret(chunk)
}
