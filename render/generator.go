package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"feeddigest/models"
	"feeddigest/utils"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

// 输出文件名
const (
	IndexFile         = "index.html"
	CurrentWeeklyFile = "current_weekly_summary.html"
	weeklyPrefix      = "weekly-"
)

// Generator 把期刊渲染为静态页面
type Generator struct {
	OutputDir  string
	ArchiveDir string
	Now        func() time.Time
	Log        *zap.SugaredLogger

	tmpl   *template.Template
	markup *Markup
}

// NewGenerator templatesDir 为空时只用内置模板，否则同名文件覆盖内置模板
func NewGenerator(outputDir, archiveDir, templatesDir string, log *zap.SugaredLogger) (*Generator, error) {
	tmpl, err := template.ParseFS(defaultTemplates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("解析内置模板失败: %w", err)
	}
	if templatesDir != "" {
		matches, _ := filepath.Glob(filepath.Join(templatesDir, "*.html"))
		if len(matches) > 0 {
			if tmpl, err = tmpl.ParseFiles(matches...); err != nil {
				return nil, fmt.Errorf("解析模板目录 %s 失败: %w", templatesDir, err)
			}
			log.Infof("[模板] 使用 %s 中的 %d 个模板覆盖内置模板", templatesDir, len(matches))
		}
	}
	return &Generator{
		OutputDir:  outputDir,
		ArchiveDir: archiveDir,
		Now:        time.Now,
		Log:        log,
		tmpl:       tmpl,
		markup:     NewMarkup(),
	}, nil
}

type navLinks struct {
	Today     string
	Yesterday string
	ThisWeek  string
	Archive   string
}

// itemView 没有引用的条目（回退或未标注）展示全部来源
type itemView struct {
	HTML       template.HTML
	References []models.Reference
	Sources    []models.ArticleRef
}

type sectionView struct {
	Category string
	Anchor   string
	Items    []itemView
}

type editionLink struct {
	Label  string
	URL    string
	Weekly bool
}

type pageData struct {
	Title       string
	Heading     string
	Key         string
	EmptyText   string
	Sections    []sectionView
	Editions    []editionLink
	Nav         navLinks
	GeneratedAt string
	Year        int
}

// nav root 为页面所在目录到输出根目录的相对前缀
func (g *Generator) nav(root, day string) navLinks {
	n := navLinks{
		Today:    root + IndexFile,
		ThisWeek: root + CurrentWeeklyFile,
		Archive:  root + "archive/" + IndexFile,
	}
	if t, err := time.Parse(time.DateOnly, day); err == nil {
		n.Yesterday = root + "archive/" + t.AddDate(0, 0, -1).Format(time.DateOnly) + ".html"
	}
	return n
}

func (g *Generator) basePage(title, heading, key string) pageData {
	now := g.Now().UTC()
	return pageData{
		Title:       title,
		Heading:     heading,
		Key:         key,
		GeneratedAt: now.Format("2006-01-02 15:04:05 UTC"),
		Year:        now.Year(),
	}
}

func (g *Generator) sections(e models.Edition) ([]sectionView, error) {
	out := make([]sectionView, 0, len(e.Sections))
	for i, s := range e.Sections {
		if len(s.Items) == 0 {
			continue
		}
		sv := sectionView{Category: s.Category, Anchor: fmt.Sprintf("cat-%d", i+1)}
		for _, item := range s.Items {
			h, err := g.markup.Item(item)
			if err != nil {
				return nil, fmt.Errorf("类别 [%s]: %w", s.Category, err)
			}
			iv := itemView{HTML: h, References: item.References}
			if len(item.References) == 0 {
				iv.Sources = item.Sources
			}
			sv.Items = append(sv.Items, iv)
		}
		out = append(out, sv)
	}
	return out, nil
}

func (g *Generator) render(name string, data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := g.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("渲染 %s 失败: %w", name, err)
	}
	return buf.Bytes(), nil
}

// PublishDaily 写入 archive/{date}.html 并更新 index.html
func (g *Generator) PublishDaily(e models.Edition) (string, error) {
	sections, err := g.sections(e)
	if err != nil {
		return "", err
	}
	data := g.basePage("FeedDigest - "+e.Key, e.Title, e.Key)
	data.Sections = sections
	data.EmptyText = "No hay noticias relevantes para hoy."

	// 归档页在子目录中，首页在根目录，导航前缀不同
	data.Nav = g.nav("../", e.Key)
	archived, err := g.render("daily.html", data)
	if err != nil {
		return "", err
	}
	data.Nav = g.nav("", e.Key)
	index, err := g.render("daily.html", data)
	if err != nil {
		return "", err
	}

	path := filepath.Join(g.ArchiveDir, e.Key+".html")
	if err := utils.WriteFileAtomic(path, archived); err != nil {
		return "", fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	if err := utils.WriteFileAtomic(filepath.Join(g.OutputDir, IndexFile), index); err != nil {
		return "", fmt.Errorf("写入首页失败: %w", err)
	}
	g.Log.Infof("[页面] 日报已生成: %s", path)
	return path, nil
}

// PublishWeekly 写入 archive/weekly-{week}.html 并把 current_weekly_summary.html 指向它
func (g *Generator) PublishWeekly(e models.Edition) (string, error) {
	sections, err := g.sections(e)
	if err != nil {
		return "", err
	}
	data := g.basePage("Resumen Semanal - "+e.Key+" - FeedDigest", e.Title, e.Key)
	data.Sections = sections
	data.EmptyText = "No hay noticias para esta semana."
	data.Nav = g.nav("../", g.Now().UTC().Format(time.DateOnly))

	page, err := g.render("weekly.html", data)
	if err != nil {
		return "", err
	}
	path := filepath.Join(g.ArchiveDir, weeklyPrefix+e.Key+".html")
	if err := utils.WriteFileAtomic(path, page); err != nil {
		return "", fmt.Errorf("写入 %s 失败: %w", path, err)
	}

	current := filepath.Join(g.OutputDir, CurrentWeeklyFile)
	linked, err := utils.LinkOrCopy(path, current)
	switch {
	case err != nil:
		g.Log.Errorf("[页面] 更新 %s 失败: %v", CurrentWeeklyFile, err)
	case linked:
		g.Log.Infof("[页面] %s -> %s", CurrentWeeklyFile, path)
	default:
		g.Log.Warnf("[页面] 无法创建符号链接，已复制到 %s", CurrentWeeklyFile)
	}
	g.Log.Infof("[页面] 周报已生成: %s", path)
	return path, nil
}

// editions 归档目录中的期刊，新的在前
func (g *Generator) editions() ([]editionLink, error) {
	entries, err := os.ReadDir(g.ArchiveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []editionLink
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".html") || name == IndexFile || name == CurrentWeeklyFile {
			continue
		}
		stem := strings.TrimSuffix(name, ".html")
		link := editionLink{Label: stem, URL: name}
		if strings.HasPrefix(stem, weeklyPrefix) {
			link.Label = strings.TrimPrefix(stem, weeklyPrefix)
			link.Weekly = true
		}
		out = append(out, link)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL > out[j].URL })
	return out, nil
}

// PublishArchiveIndex 重新生成 archive/index.html
func (g *Generator) PublishArchiveIndex() (string, error) {
	editions, err := g.editions()
	if err != nil {
		return "", fmt.Errorf("读取归档目录失败: %w", err)
	}
	data := g.basePage("Archivo de Ediciones - FeedDigest", "Archivo de ediciones", "")
	data.Editions = editions
	data.EmptyText = "Todavía no hay ediciones archivadas."
	data.Nav = g.nav("../", "")

	page, err := g.render("archive_index.html", data)
	if err != nil {
		return "", err
	}
	path := filepath.Join(g.ArchiveDir, IndexFile)
	if err := utils.WriteFileAtomic(path, page); err != nil {
		return "", fmt.Errorf("写入 %s 失败: %w", path, err)
	}
	g.Log.Infof("[页面] 归档索引已生成: %d 期", len(editions))
	return path, nil
}
