package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/nacos-group/nacos-sdk-go/v2/vo"
)

// StartWatch 监听配置变化，在变更时回调 onChange(old, new)
// 仅在 Nacos 配置了的情况下生效；本地文件配置改动需要重启进程
func StartWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	if strings.TrimSpace(os.Getenv("NACOS_SERVER_ADDR")) == "" {
		fmt.Println("[Config] Nacos 未配置，跳过配置监听")
		return nil
	}
	return startNacosWatch(ctx, onChange)
}

// startNacosWatch 启动 Nacos 配置监听
// 变更推送解析成功后同时刷新 Set 与 SetCurrent 两个读取入口，
// 解析失败保留旧配置继续运行
func startNacosWatch(ctx context.Context, onChange func(oldCfg, newCfg *Config)) error {
	configClient, dataID, group, err := newNacosClientFromEnv()
	if err != nil {
		return err
	}

	// 保存全局客户端引用
	nacosConfigClient = configClient

	err = configClient.ListenConfig(vo.ConfigParam{
		DataId: dataID,
		Group:  group,
		OnChange: func(namespace, group, dataId, data string) {
			fmt.Printf("[Config] Nacos 配置变更: namespace=%s, group=%s, dataId=%s\n",
				namespace, group, dataId)

			newCfg, err := parseConfigPayload(dataId, []byte(data))
			if err != nil {
				fmt.Printf("[Config] 解析 Nacos 配置失败，保留旧配置: error=%v\n", err)
				return
			}

			oldCfg := GetCurrent()
			Set(newCfg)
			SetCurrent(newCfg)

			if onChange != nil {
				onChange(oldCfg, newCfg)
			}
			fmt.Println("[Config] Nacos 配置已更新")
		},
	})
	if err != nil {
		return fmt.Errorf("failed to listen nacos config: %w", err)
	}

	fmt.Printf("[Config] Nacos 配置监听已启动: dataId=%s, group=%s\n", dataID, group)
	return nil
}
