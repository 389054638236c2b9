package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/law-agent/backend/internal/analysis/sanitize"
	"github.com/zhouzirui/law-agent/backend/internal/config"
	"github.com/zhouzirui/law-agent/backend/internal/model/persona"
	"github.com/zhouzirui/law-agent/backend/internal/service/ai"
)

// chatprobe 向本地模型重复发送同一问题，每次使用不同的随机种子，
// 用于确认模型可达并观察回复是否随种子变化。
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	question := flag.String("prompt", "What should I check before signing a lease?", "发送给模型的问题")
	runs := flag.Int("runs", 2, "重复请求次数")
	model := flag.String("model", "", "模型名称，默认使用 OLLAMA_MODEL")
	timeout := flag.Duration("timeout", cfg.Inference.Timeout, "单次请求超时时间")
	raw := flag.Bool("raw", false, "输出未经清洗的模型原文")

	flag.Parse()

	if strings.TrimSpace(*question) == "" || *runs < 1 {
		flag.Usage()
		log.Fatal("请通过 -prompt 提供问题，并保证 -runs >= 1")
	}

	inference := cfg.Inference
	inference.Timeout = *timeout
	inference.RandomSeed = true
	if *model != "" {
		inference.Model = *model
	}

	probeID := uuid.NewString()
	var seeds []int
	client := ai.NewClient(inference, ai.WithSeedSource(func() int {
		seed := rand.IntN(math.MaxInt32)
		seeds = append(seeds, seed)
		return seed
	}))

	assembler := ai.NewAssembler(persona.Counsel(), cfg.Chat.HistoryWindow)
	prompt, err := assembler.Assemble(context.Background(), *question, nil, nil)
	if err != nil {
		log.Fatalf("构建提示词失败: %v", err)
	}

	log.Printf("开始探测: probe=%s client=%s runs=%d", probeID, client, *runs)

	replies := make([]string, 0, *runs)
	for i := 0; i < *runs; i++ {
		start := time.Now()
		text, ok := client.Query(context.Background(), prompt.System, prompt.User)
		elapsed := time.Since(start).Round(time.Millisecond)
		if !ok {
			log.Fatalf("第 %d 次请求失败 (耗时 %s)，请确认 Ollama 已启动且模型已拉取", i+1, elapsed)
		}

		if !*raw {
			text = sanitize.Clean(text)
		}
		seed := 0
		if len(seeds) > i {
			seed = seeds[i]
		}
		log.Printf("第 %d 次: seed=%d 耗时=%s 长度=%d substantive=%v", i+1, seed, elapsed, len(text), sanitize.Substantive(text, cfg.Chat.MinResponseLength))
		fmt.Fprintf(os.Stdout, "--- run %d (seed %d) ---\n%s\n\n", i+1, seed, text)
		replies = append(replies, text)
	}

	if len(replies) > 1 {
		distinct := map[string]struct{}{}
		for _, r := range replies {
			distinct[r] = struct{}{}
		}
		log.Printf("探测完成: probe=%s 共 %d 条回复，其中 %d 条互不相同", probeID, len(replies), len(distinct))
	}
}
