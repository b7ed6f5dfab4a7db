package middleware

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"estoque-service/internal/config"

	"go.uber.org/zap"
)

// ServerInfo imprime o banner de inicialização
func ServerInfo(cfg *config.Config, logger *zap.Logger) {
	hostname, _ := os.Hostname()
	goVersion := runtime.Version()
	startTime := time.Now().Format("2006-01-02 15:04:05")
	port := cfg.Server.Port
	base := "http://localhost:" + port

	habilitado := func(ok bool) string {
		if ok {
			return greenColor + "on" + resetColor
		}
		return yellowColor + "off" + resetColor
	}

	fmt.Println("")
	fmt.Println("📦 " + boldColor + "Estoque Service API" + resetColor)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("📅 Iniciado em: " + startTime)
	fmt.Println("🌐 URL: " + cyanColor + base + resetColor)
	fmt.Println("💻 Hostname: " + hostname)
	fmt.Println("🔧 Go: " + goVersion)
	fmt.Println("")
	fmt.Println("📊 " + boldColor + "Rotas principais:" + resetColor)
	fmt.Println("   POST " + greenColor + "/api/v1/estoque/:local/entrada" + resetColor)
	fmt.Println("   POST " + greenColor + "/api/v1/estoque/:local/saida" + resetColor)
	fmt.Println("   POST " + greenColor + "/api/v1/transferencias/loja" + resetColor)
	fmt.Println("   POST " + greenColor + "/api/v1/contagens" + resetColor)
	fmt.Println("   POST " + greenColor + "/api/v1/contagens/ajustar" + resetColor)
	fmt.Println("   GET  " + greenColor + "/api/v1/relatorios/painel-validade/:local" + resetColor)
	fmt.Println("   GET  " + greenColor + "/health" + resetColor)
	fmt.Println("")
	fmt.Println("⚙️  " + boldColor + "Ambiente:" + resetColor)
	fmt.Println("   🗄️  PostgreSQL: " + habilitado(true))
	fmt.Println("   🗃️  Redis: " + habilitado(cfg.Redis.Enabled))
	fmt.Println("   🐇 RabbitMQ: " + habilitado(cfg.RabbitMQ.URL != ""))
	fmt.Println("   👂 Canal de contagens: " + cfg.Estoque.CanalContagens)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("")

	logger.Info("Server started successfully",
		zap.String("port", port),
		zap.String("hostname", hostname),
		zap.String("go_version", goVersion),
		zap.String("start_time", startTime),
	)
}
