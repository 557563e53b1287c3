package server

import (
	"bytes"
	"fmt"
	"image/png"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Fepozopo/promptcanvas/pkg/bgremove"
	"github.com/Fepozopo/promptcanvas/pkg/filter"
	"github.com/Fepozopo/promptcanvas/pkg/intent"
	"github.com/Fepozopo/promptcanvas/pkg/raster"
	"github.com/Fepozopo/promptcanvas/pkg/stdimg"
	"github.com/Fepozopo/promptcanvas/pkg/studio"
)

type commandRequest struct {
	Text string `json:"text"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"version":      s.version,
		"engine":       s.env.Provider.Name(),
		"engine_ready": s.env.Provider.IsReady(),
		"background":   s.env.Background.State().String(),
		"sessions":     s.sessions.Len(),
	})
}

func (s *Server) commands(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"examples": intent.Examples,
		"help":     intent.HelpMessage,
		"filters":  stdimg.Filters,
	})
}

func (s *Server) createSession(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if err := s.env.Intake.Validate(fh.Filename, fh.Size, fh.Header.Get("Content-Type")); err != nil {
		fail(c, err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.env.Intake.MaxSize+1))
	if err != nil {
		fail(c, err)
		return
	}
	img, _, err := s.env.Intake.Decode(data)
	if err != nil {
		fail(c, err)
		return
	}

	st, err := s.env.NewStudio()
	if err != nil {
		fail(c, err)
		return
	}
	if err := st.Load(fh.Filename, img); err != nil {
		_ = st.Close()
		fail(c, err)
		return
	}
	id := s.sessions.Add(st)
	c.JSON(http.StatusCreated, sessionView(id, st))
}

func sessionView(id string, st *studio.Studio) gin.H {
	h := gin.H{
		"id":      id,
		"source":  st.SourceName(),
		"width":   st.Canvas().Width(),
		"height":  st.Canvas().Height(),
		"busy":    st.Busy(),
		"history": st.History(),
	}
	if st.LastRemoval() != nil {
		cutout, mask := bgremove.OutputNames(st.SourceName())
		h["cutout"] = cutout
		h["mask"] = mask
	}
	return h
}

// session resolves :id or writes a 404.
func (s *Server) session(c *gin.Context) (*studio.Studio, bool) {
	st, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return st, true
}

func (s *Server) getSession(c *gin.Context) {
	st, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sessionView(c.Param("id"), st))
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.sessions.Delete(c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) runCommand(c *gin.Context) {
	st, ok := s.session(c)
	if !ok {
		return
	}
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	in, err := st.Run(c.Request.Context(), req.Text)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"intent":      in,
		"description": in.Describe(),
		"history":     st.History(),
	})
}

func (s *Server) history(c *gin.Context) {
	st, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": st.History()})
}

func (s *Server) applyFilter(c *gin.Context) {
	st, ok := s.session(c)
	if !ok {
		return
	}
	var req filter.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Intensity == 0 {
		req.Intensity = stdimg.DefaultIntensity
	}
	if err := st.ApplyFilter(c.Request.Context(), req); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filter": req.Kind, "intensity": req.Intensity})
}

func (s *Server) reset(c *gin.Context) {
	st, ok := s.session(c)
	if !ok {
		return
	}
	if err := st.Reset(); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) removeBackground(c *gin.Context) {
	st, ok := s.session(c)
	if !ok {
		return
	}
	res, err := st.RemoveBackground(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	cutout, mask := bgremove.OutputNames(st.SourceName())
	c.JSON(http.StatusOK, gin.H{
		"key":    res.Key,
		"width":  res.Image.Rect.Dx(),
		"height": res.Image.Rect.Dy(),
		"cutout": cutout,
		"mask":   mask,
	})
}

func (s *Server) image(c *gin.Context) {
	st, ok := s.session(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, st.Snapshot()); err != nil {
		fail(c, err)
		return
	}
	if c.Query("download") != "" {
		name := raster.OutputName(st.SourceName(), "edited")
		if st.LastRemoval() != nil {
			name, _ = bgremove.OutputNames(st.SourceName())
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) mask(c *gin.Context) {
	st, ok := s.session(c)
	if !ok {
		return
	}
	res := st.LastRemoval()
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no background removal has run in this session"})
		return
	}
	_, name := bgremove.OutputNames(st.SourceName())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, "image/png", res.MaskPNG)
}
