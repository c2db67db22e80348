package httpx

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dbstatic/internal/metrics"
)

const notFoundBody = "Not found"

// StaticFiles serves files below dir. Lookups go through an os.Root, so no
// request can reach outside the directory, whether by "..", an absolute
// path or a symlink.
type StaticFiles struct {
	dir string
}

func NewStaticFiles(dir string, log *zap.Logger) *StaticFiles {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.Warn("Static directory is not readable, every /static request will 404", zap.String("dir", dir))
	}
	return &StaticFiles{dir: dir}
}

// Handle answers GET and HEAD for /static/*filepath.
func (sf *StaticFiles) Handle(c *gin.Context) {
	f, info, err := sf.open(strings.Trim(c.Param("filepath"), "/"))
	if err != nil {
		notFound(c)
		return
	}
	defer f.Close()

	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

func (sf *StaticFiles) open(name string) (*os.File, fs.FileInfo, error) {
	if name == "" {
		name = "."
	}

	root, err := os.OpenRoot(sf.dir)
	if err != nil {
		return nil, nil, err
	}
	defer root.Close()

	f, info, err := openFile(root, name)
	if err != nil {
		return nil, nil, err
	}
	if !info.IsDir() {
		return f, info, nil
	}

	f.Close()
	f, info, err = openFile(root, path.Join(name, "index.html"))
	if err != nil {
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, fs.ErrNotExist
	}
	return f, info, nil
}

func openFile(root *os.Root, name string) (*os.File, fs.FileInfo, error) {
	f, err := root.Open(name)
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if !info.IsDir() && !info.Mode().IsRegular() {
		f.Close()
		return nil, nil, errors.New("not a regular file")
	}
	return f, info, nil
}

func notFound(c *gin.Context) {
	metrics.StaticNotFoundTotal.Inc()
	c.String(http.StatusNotFound, notFoundBody)
}
