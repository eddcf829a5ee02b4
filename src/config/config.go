package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	Server struct {
		Addr        string   `json:"addr"`         // 监听地址
		ReadTimeout Duration `json:"read_timeout"` // 读取请求超时时间
	} `json:"server"`

	DataPath         string   `json:"data_path"`          // 数据文件(csv/xlsx)
	SheetName        string   `json:"sheet_name"`         // xlsx工作表名称
	Encoding         string   `json:"encoding"`           // csv字符集
	WatchData        bool     `json:"watch_data"`         // 数据文件更新时重新加载
	LogName          string   `json:"log_name"`           // 日志文件
	LogMaxSize       string   `json:"log_max_size"`       // 例如 "10 * 1024 * 1024"
	LogCheckInterval Duration `json:"log_check_interval"` // 日志轮转检查间隔
}

// DataConfig 看板相关的数据配置
type DataConfig struct {
	Columns        map[string]string `json:"columns"` // 标准列名 -> 数据源表头
	MinYear        int               `json:"min_year"`
	DefaultGenres  []string          `json:"default_genres"`
	DefaultRatings []string          `json:"default_ratings"`
	DefaultYears   [2]int            `json:"default_years"`
	Locale         string            `json:"locale"`
	Labels         map[string]string `json:"labels"`
}

// configCache 进程内只加载一次的配置, 失败时也保留第一次的错误
type configCache struct {
	once sync.Once
	cfg  *Config
	dcfg *DataConfig
	err  error
}

var (
	cache configCache
	mu    sync.RWMutex
)

// 默认界面文字
var defaultLabels = map[string]string{
	"title":           "Состояние игровой индустрии",
	"subtitle":        "Анализ игровой индустрии с 2000 года. Используйте фильтры, чтобы увидеть результат.",
	"genres":          "Жанры игр",
	"ratings":         "Рейтинги игр",
	"years":           "Годы выпуска",
	"count":           "Результат фильтрации: %d",
	"releases_title":  "Выпуск игр по годам и платформам.",
	"releases_x":      "Года",
	"releases_y":      "Кол-во",
	"releases_legend": "Платформа",
	"scores_title":    "Зависимость оценок от жанров",
	"scores_x":        "Оценка пользователей",
	"scores_y":        "Оценка критиков",
	"scores_legend":   "Жанр",
	"export":          "Экспорт в Excel",
	"empty":           "Нет данных",
}

// LoadConfig 加载配置, 进程内只加载一次
// 之后的调用忽略参数, 直接返回第一次的结果(包括错误)
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	return cache.load(jsonFolder, jsonFile, dataJsonFile)
}

func (c *configCache) load(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	c.once.Do(func() {
		c.cfg, c.dcfg, c.err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return c.cfg, c.dcfg, c.err
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	// 相对路径按配置目录解析
	if cfg.DataPath != "" && !filepath.IsAbs(cfg.DataPath) {
		cfg.DataPath = filepath.Join(jsonFolder, cfg.DataPath)
	}

	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	cfg.applyDefaults()
	resultChan <- &cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	var dcfg DataConfig
	if err := json.Unmarshal(data, &dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	dcfg.applyDefaults()
	resultChan <- &dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8050"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(10 * time.Second)
	}
	if c.LogName == "" {
		c.LogName = "app.log"
	}
	if c.LogMaxSize == "" {
		c.LogMaxSize = "10 * 1024 * 1024"
	}
	if c.LogCheckInterval == 0 {
		c.LogCheckInterval = Duration(time.Minute)
	}
}

func (dc *DataConfig) applyDefaults() {
	if dc.MinYear == 0 {
		dc.MinYear = 2000
	}
	if dc.DefaultGenres == nil {
		dc.DefaultGenres = []string{"Sports", "Strategy"}
	}
	if dc.DefaultRatings == nil {
		dc.DefaultRatings = []string{"T", "E"}
	}
	if dc.DefaultYears == [2]int{} {
		dc.DefaultYears = [2]int{2004, 2014}
	}
	if dc.Locale == "" {
		dc.Locale = "ru"
	}
	if dc.Columns == nil {
		dc.Columns = map[string]string{}
	}
	if dc.Labels == nil {
		dc.Labels = map[string]string{}
	}
	for k, v := range defaultLabels {
		if _, ok := dc.Labels[k]; !ok {
			dc.Labels[k] = v
		}
	}
}

// MaxLogSize 解析log_max_size, 支持 "10 * 1024 * 1024" 这样的乘法表达式
func (c *Config) MaxLogSize() (int64, error) {
	parts := strings.Split(c.LogMaxSize, "*")
	var result int64 = 1
	for _, part := range parts {
		num, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("无效的log_max_size %q: %w", c.LogMaxSize, err)
		}
		result *= num
	}
	return result, nil
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (dc *DataConfig) GetLabel(key string) string {
	mu.RLock()
	defer mu.RUnlock()
	return dc.Labels[key]
}
