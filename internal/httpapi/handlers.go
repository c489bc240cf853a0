package httpapi

import (
	"net/http"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/gin-gonic/gin"

	"github.com/haldane/mlfqkernel/internal/kernel"
)

type api struct {
	k    *kernel.Kernel
	snap *snapshotCache
}

func (a *api) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func (a *api) stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ticks": a.k.Ticks(),
	})
}

// listProcesses serves the coalesced snapshot cache rather than calling
// Kernel.Snapshot() directly, so concurrent pollers share one table walk
// (see snapshot_cache.go).
func (a *api) listProcesses(c *gin.Context) {
	snap := a.snap.get()
	c.Header("X-Total-Count", strconv.Itoa(len(snap)))
	c.JSON(http.StatusOK, snap)
}

func (a *api) getProcess(c *gin.Context) {
	pid, err := strconv.ParseInt(c.Param("pid"), 10, 64)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid pid"})
		return
	}

	p, ok := a.k.Lookup(pid)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": kernel.ErrNoSuchProcess.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pid":      p.Pid(),
		"name":     p.Name(),
		"state":    p.State().String(),
		"priority": p.Priority(),
		"killed":   p.Killed(),
	})
}

func (a *api) killProcess(c *gin.Context) {
	pid, err := strconv.ParseInt(c.Param("pid"), 10, 64)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid pid"})
		return
	}

	if err := a.k.Kill(pid); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"pid": pid, "killed": true})
}

// dumpProcess spew-dumps a single descriptor's snapshot for interactive
// debugging, grounded on the teacher's pkg/fmtt.PrintErrChainDebug use of
// spew.Dump — same library, same "give me everything" diagnostic intent.
func (a *api) dumpProcess(c *gin.Context) {
	pid, err := strconv.ParseInt(c.Param("pid"), 10, 64)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid pid"})
		return
	}

	p, ok := a.k.Lookup(pid)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": kernel.ErrNoSuchProcess.Error()})
		return
	}

	snap := struct {
		Pid      int64
		Name     string
		State    string
		Priority int
		Killed   bool
	}{p.Pid(), p.Name(), p.State().String(), p.Priority(), p.Killed()}

	c.String(http.StatusOK, spew.Sdump(snap))
}
